package mission

import (
	"liciel/internal/reconcile"
	"liciel/internal/tables"
	"liciel/internal/xmlrows"
)

var conclusionDomains = []struct {
	label  string
	fields reconcile.Synonyms
}{
	{tables.DomainAmiante, reconcile.Synonyms{"Conclusion_Amiante", "Etat_Amiante"}},
	{tables.DomainPlomb, reconcile.Synonyms{"CREP_Classement"}},
	{tables.DomainDPE, reconcile.Synonyms{"DPE_Conclusion", "DPE_Etiquette"}},
}

// DetectDomains lists the diagnostic domains of a mission without
// duplicates: Administratif when administrative conclusions exist, then
// the domains named by table files, then those filled in the per-domain
// conclusions, then Amiante when material zones were reconciled.
func DetectDomains(f Folder, m *Mission) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(labels ...string) {
		for _, l := range labels {
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}

	if len(m.Conclusions) > 0 {
		add(tables.DomainAdministratif)
	}

	names := make([]string, 0, len(f.Tables))
	for _, t := range f.Tables {
		if t.Role != tables.RoleUnclassified {
			names = append(names, t.FileInfo.Name)
		}
	}
	add(tables.DetectDomains(names...)...)
	add(ConclusionDomains(m.DomainConclusions)...)

	if len(m.Zones) > 0 {
		add(tables.DomainAmiante)
	}
	return out
}

// ConclusionDomains returns the domains with a non-empty conclusion field
// in any of rows.
func ConclusionDomains(rows []xmlrows.Row) []string {
	var out []string
	for _, d := range conclusionDomains {
		for _, row := range rows {
			if d.fields.Resolve(row) != "" {
				out = append(out, d.label)
				break
			}
		}
	}
	return out
}
