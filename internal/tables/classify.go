// Package tables assigns a role to each file of a LICIEL export from its
// name alone.
package tables

import (
	"path/filepath"
	"strings"
)

// Role is the part a table plays in a mission.
type Role string

const (
	RoleGeneralInfo       Role = "general-info"
	RoleConclusions       Role = "conclusions"
	RoleDescription       Role = "description"
	RolePhotos            Role = "photos"
	RoleDomainConclusions Role = "domain-conclusions"
	RoleLabAnalyses       Role = "lab-analyses"
	RoleSamples           Role = "samples"
	RoleDocuments         Role = "documents"
	RoleDeviations        Role = "deviations"
	RoleAsbestosGeneral   Role = "asbestos-general"
	RoleMaterials         Role = "materials"
	RoleDomainFlag        Role = "domain-flag"
	RoleUnclassified      Role = "unclassified"
)

// Classification is the result of Classify.
type Classification struct {
	Name   string // base name as found on disk
	Role   Role
	Domain string // label of the first domain keyword in the name, if any
	Hint   string // item tag expected in this file, empty for flat tables
}

// Domain labels.
const (
	DomainAmiante       = "Amiante"
	DomainPlomb         = "Plomb"
	DomainElectricite   = "Électricité"
	DomainGaz           = "Gaz"
	DomainDPE           = "DPE"
	DomainCarrez        = "Mesurage Carrez"
	DomainParasites     = "Parasites"
	DomainTermites      = "Termites"
	DomainAdministratif = "Administratif"
)

type keyword struct {
	needle string
	label  string
}

var domainKeywords = []keyword{
	{"amiante", DomainAmiante},
	{"crep", DomainPlomb},
	{"elec", DomainElectricite},
	{"gaz", DomainGaz},
	{"dpe", DomainDPE},
	{"carrez", DomainCarrez},
	{"parasite", DomainParasites},
	{"termite", DomainTermites},
}

var exactRoles = map[string]Role{
	"table_general_bien":               RoleGeneralInfo,
	"table_general_bien_conclusions":   RoleConclusions,
	"table_general_desciption_general": RoleDescription,
	"table_general_photo":              RolePhotos,
	"table_z_conclusions_details":      RoleDomainConclusions,
}

var itemHints = map[Role]string{
	RoleConclusions:       "LiItem_table_General_Bien_conclusions",
	RolePhotos:            "LiItem_table_General_Photo",
	RoleDomainConclusions: "LiItem_table_Z_Conclusions_details",
	RoleLabAnalyses:       "LiItem_table_General_Amiante_Analyses",
	RoleSamples:           "LiItem_table_Z_Amiante_prelevements",
	RoleDocuments:         "LiItem_table_Z_Amiante_doc_remis",
	RoleDeviations:        "LiItem_table_Z_Amiante_Ecart_Norme",
	RoleMaterials:         "LiItem_table_Z_Amiante",
}

// Classify assigns a role to filename. Only .xml files are classified; the
// match is case-insensitive and specific names win over generic patterns.
func Classify(filename string) Classification {
	name := filepath.Base(filename)
	c := Classification{Name: name, Role: RoleUnclassified}

	ext := filepath.Ext(name)
	if !strings.EqualFold(ext, ".xml") {
		return c
	}
	stem := name[:len(name)-len(ext)]
	low := strings.ToLower(stem)

	c.Domain = domainOf(low)
	c.Role = roleOf(low, c.Domain != "")
	if _, ok := itemHints[c.Role]; ok {
		c.Hint = "LiItem_" + stem
	}
	return c
}

func roleOf(low string, hasDomain bool) Role {
	if role, ok := exactRoles[low]; ok {
		return role
	}

	if strings.Contains(low, "amiante") {
		switch {
		case strings.Contains(low, "_analyses"):
			return RoleLabAnalyses
		case strings.Contains(low, "_prelevements"):
			return RoleSamples
		case strings.Contains(low, "_doc_remis"):
			return RoleDocuments
		case strings.Contains(low, "_ecart_norme"):
			return RoleDeviations
		case strings.Contains(low, "amiante_general"):
			return RoleAsbestosGeneral
		}
	}

	if low == "table_z_amiante" || low == "table_amiante" {
		return RoleMaterials
	}
	if hasDomain {
		return RoleDomainFlag
	}
	return RoleUnclassified
}

func domainOf(low string) string {
	for _, kw := range domainKeywords {
		if strings.Contains(low, kw.needle) {
			return kw.label
		}
	}
	return ""
}

// ItemHint returns the canonical item tag of role, or "" for roles whose
// tables are a single flat record.
func ItemHint(role Role) string {
	return itemHints[role]
}

// DetectDomains returns the domain labels named by files, in first-seen
// order. A file naming several domains contributes each of them.
func DetectDomains(names ...string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range names {
		low := strings.ToLower(filepath.Base(name))
		for _, kw := range domainKeywords {
			if strings.Contains(low, kw.needle) && !seen[kw.label] {
				seen[kw.label] = true
				out = append(out, kw.label)
			}
		}
	}
	return out
}
