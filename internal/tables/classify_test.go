package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantRole   Role
		wantDomain string
		wantHint   string
	}{
		{name: "general info", input: "Table_General_Bien.xml", wantRole: RoleGeneralInfo},
		{name: "general info lowercase path", input: "/data/M1/XML/table_general_bien.XML", wantRole: RoleGeneralInfo},
		{name: "conclusions", input: "Table_General_Bien_conclusions.xml", wantRole: RoleConclusions, wantHint: "LiItem_Table_General_Bien_conclusions"},
		{name: "description keeps the source misspelling", input: "Table_General_Desciption_General.xml", wantRole: RoleDescription},
		{name: "correctly spelled description is not recognised", input: "Table_General_Description_General.xml", wantRole: RoleUnclassified},
		{name: "photos", input: "Table_General_Photo.xml", wantRole: RolePhotos, wantHint: "LiItem_Table_General_Photo"},
		{name: "domain conclusions", input: "Table_Z_Conclusions_details.xml", wantRole: RoleDomainConclusions, wantHint: "LiItem_Table_Z_Conclusions_details"},
		{name: "lab analyses", input: "Table_General_Amiante_Analyses.xml", wantRole: RoleLabAnalyses, wantDomain: DomainAmiante, wantHint: "LiItem_Table_General_Amiante_Analyses"},
		{name: "samples", input: "Table_Z_Amiante_prelevements.xml", wantRole: RoleSamples, wantDomain: DomainAmiante, wantHint: "LiItem_Table_Z_Amiante_prelevements"},
		{name: "samples without Z", input: "table_amiante_prelevements.xml", wantRole: RoleSamples, wantDomain: DomainAmiante, wantHint: "LiItem_table_amiante_prelevements"},
		{name: "documents", input: "Table_Z_Amiante_doc_remis.xml", wantRole: RoleDocuments, wantDomain: DomainAmiante, wantHint: "LiItem_Table_Z_Amiante_doc_remis"},
		{name: "deviations", input: "Table_Z_Amiante_Ecart_Norme.xml", wantRole: RoleDeviations, wantDomain: DomainAmiante, wantHint: "LiItem_Table_Z_Amiante_Ecart_Norme"},
		{name: "asbestos general", input: "Table_Z_Amiante_General.xml", wantRole: RoleAsbestosGeneral, wantDomain: DomainAmiante},
		{name: "materials", input: "Table_Z_Amiante.xml", wantRole: RoleMaterials, wantDomain: DomainAmiante, wantHint: "LiItem_Table_Z_Amiante"},
		{name: "materials without Z", input: "Table_Amiante.xml", wantRole: RoleMaterials, wantDomain: DomainAmiante, wantHint: "LiItem_Table_Amiante"},
		{name: "other asbestos table is a domain flag", input: "Table_Z_Amiante_Croquis.xml", wantRole: RoleDomainFlag, wantDomain: DomainAmiante},
		{name: "lead table", input: "Table_Z_CREP_Mesures.xml", wantRole: RoleDomainFlag, wantDomain: DomainPlomb},
		{name: "electricity table", input: "Table_Z_Elec_Anomalies.xml", wantRole: RoleDomainFlag, wantDomain: DomainElectricite},
		{name: "termites table", input: "table_z_termites.xml", wantRole: RoleDomainFlag, wantDomain: DomainTermites},
		{name: "unrelated xml", input: "Table_General_Operateur.xml", wantRole: RoleUnclassified},
		{name: "non xml file with keyword", input: "Table_Z_Amiante.json", wantRole: RoleUnclassified},
		{name: "no extension", input: "Table_General_Bien", wantRole: RoleUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.input)
			assert.Equal(t, tt.wantRole, got.Role)
			assert.Equal(t, tt.wantDomain, got.Domain)
			assert.Equal(t, tt.wantHint, got.Hint)
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	// every asbestos sub-table also contains the materials stem
	for _, name := range []string{
		"Table_Z_Amiante_prelevements.xml",
		"Table_Z_Amiante_doc_remis.xml",
		"Table_Z_Amiante_Ecart_Norme.xml",
		"Table_Z_Amiante_General.xml",
	} {
		assert.NotEqual(t, RoleMaterials, Classify(name).Role, name)
		assert.NotEqual(t, RoleDomainFlag, Classify(name).Role, name)
	}
}

func TestItemHint(t *testing.T) {
	assert.Equal(t, "LiItem_table_Z_Amiante", ItemHint(RoleMaterials))
	assert.Equal(t, "LiItem_table_Z_Amiante_prelevements", ItemHint(RoleSamples))
	assert.Empty(t, ItemHint(RoleGeneralInfo))
	assert.Empty(t, ItemHint(RoleUnclassified))
}

func TestDetectDomains(t *testing.T) {
	got := DetectDomains(
		"Table_General_Bien.xml",
		"Table_Z_CREP.xml",
		"Table_Z_Amiante.xml",
		"Table_Z_Amiante_prelevements.xml",
		"Table_Z_DPE_Elec.xml",
	)
	assert.Equal(t, []string{DomainPlomb, DomainAmiante, DomainElectricite, DomainDPE}, got)
	assert.Empty(t, DetectDomains("Table_General_Bien.xml"))
}
