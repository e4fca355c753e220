package schema

import "pomi/internal/access"

// Column names referenced outside their own entry.
const (
	ColID = "id"

	ColCodeVariete = "code_variete"
	ColNomVariete  = "nom_variete"

	ColCodeProducteur = "code_producteur"
	ColNomProducteur  = "nom"
	ColCodePostal     = "code_postal"
	ColDepartement    = "departement"

	ColCodePlant = "code_plant"

	ColCodeSite        = "code_site"
	ColCodeEmplacement = "code_emplacement"
	ColCodeUnique      = "code_unique"

	ColCodeEmballage = "code_emballage"

	ColCodeProduit  = "code_produit"
	ColPrixUnitaire = "prix_unitaire"
	ColUnitePrix    = "unite_prix"

	ColCodeLot        = "code_lot_interne"
	ColNomUsage       = "nom_usage"
	ColDateEntree     = "date_entree_stock"
	ColNombreUnites   = "nombre_unites"
	ColPoidsBrutKg    = "poids_total_brut_kg"
	ColPoidsNetLaveKg = "poids_net_lave_kg"
	ColPrixAchatTonne = "prix_achat_euro_tonne"
	ColSiteStockage   = "site_stockage"
)

// Unique constraint names, shared with the storage models.
const (
	UQVarieteCode    = "uq_ref_varietes_code_variete"
	UQProducteurCode = "uq_ref_producteurs_code_producteur"
	UQPlantCode      = "uq_ref_plants_code_plant"
	UQSiteCode       = "uq_ref_sites_stockage_code_unique"
	UQEmballageCode  = "uq_ref_emballages_code_emballage"
	UQProduitCode    = "uq_ref_produits_commerciaux_code_produit"
	UQTypeDechetCode = "uq_ref_types_dechets_code"
	UQLotCode        = "uq_lots_bruts_code_lot_interne"
)

func Varietes() *Table {
	return &Table{
		Name:       "varietes",
		Label:      "Variétés",
		Table:      "ref_varietes",
		PrimaryKey: ColID,
		PageGroup:  access.GroupReferences,
		Columns: []Column{
			{Name: ColCodeVariete, Label: "Code variété", Type: TypeText},
			{Name: ColNomVariete, Label: "Nom", Type: TypeText},
			{Name: "type_variete", Label: "Type", Type: TypeText},
			{Name: "utilisation", Label: "Utilisation", Type: TypeText},
			{Name: "couleur_peau", Label: "Couleur peau", Type: TypeText},
			{Name: "couleur_chair", Label: "Couleur chair", Type: TypeText},
		},
		Hidden: []Column{
			{Name: "notes", Label: "Notes", Type: TypeText},
		},
		Editable: []string{ColNomVariete, "type_variete", "utilisation", "couleur_peau", "couleur_chair", "notes"},
		Dropdowns: []Dropdown{
			{Column: "type_variete", Kind: DropdownStatic, Values: []string{"Chair ferme", "Consommation", "Frites", "Four", "Primeur"}},
			{Column: "utilisation", Kind: DropdownDistinct, AllowNew: true},
		},
		Required: []string{ColCodeVariete, ColNomVariete},
		BusinessKeys: []BusinessKey{
			{Constraint: UQVarieteCode, Column: ColCodeVariete, Message: "Ce code variété existe déjà"},
		},
		HasCreatedAt: true,
		HasUpdatedAt: true,
		OrderBy:      ColCodeVariete,
	}
}

func Producteurs() *Table {
	return &Table{
		Name:       "producteurs",
		Label:      "Producteurs",
		Table:      "ref_producteurs",
		PrimaryKey: ColID,
		PageGroup:  access.GroupReferences,
		Columns: []Column{
			{Name: ColCodeProducteur, Label: "Code producteur", Type: TypeText},
			{Name: ColNomProducteur, Label: "Nom", Type: TypeText},
			{Name: "adresse", Label: "Adresse", Type: TypeText},
			{Name: ColCodePostal, Label: "Code postal", Type: TypeText},
			{Name: "ville", Label: "Ville", Type: TypeText},
			{Name: "telephone", Label: "Téléphone", Type: TypeText},
			{Name: "email", Label: "Email", Type: TypeText},
			{Name: "acheteur_referent", Label: "Acheteur référent", Type: TypeText},
			{Name: "statut", Label: "Statut", Type: TypeText},
		},
		Hidden: []Column{
			{Name: "siret", Label: "SIRET", Type: TypeText},
			{Name: "global_gap", Label: "GlobalGAP", Type: TypeText},
			{Name: "notes", Label: "Notes", Type: TypeText},
		},
		Editable: []string{
			ColNomProducteur, "adresse", ColCodePostal, "ville", "telephone", "email",
			"acheteur_referent", "statut", "siret", "global_gap", "notes",
		},
		Calculated: []Calculated{
			{
				Column:  Column{Name: ColDepartement, Label: "Département", Type: TypeText},
				Sources: []string{ColCodePostal},
				Derive:  DeriveDepartement,
			},
		},
		Dropdowns: []Dropdown{
			{Column: "statut", Kind: DropdownStatic, Values: []string{"ACTIF", "EN_PAUSE", "ARCHIVE"}},
			{Column: "acheteur_referent", Kind: DropdownDistinct, AllowNew: true},
		},
		Required: []string{ColCodeProducteur, ColNomProducteur},
		BusinessKeys: []BusinessKey{
			{Constraint: UQProducteurCode, Column: ColCodeProducteur, Message: "Ce code producteur existe déjà"},
		},
		HasCreatedAt: true,
		HasUpdatedAt: true,
		OrderBy:      ColCodeProducteur,
	}
}

func Plants() *Table {
	return &Table{
		Name:       "plants",
		Label:      "Plants",
		Table:      "ref_plants",
		PrimaryKey: ColID,
		PageGroup:  access.GroupReferences,
		Columns: []Column{
			{Name: ColCodePlant, Label: "Code plant", Type: TypeText},
			{Name: ColCodeVariete, Label: "Code variété", Type: TypeText},
			{Name: "libelle", Label: "Libellé", Type: TypeText},
			{Name: "calibre", Label: "Calibre", Type: TypeText},
			{Name: "fournisseur", Label: "Fournisseur", Type: TypeText},
			{Name: "poids_sac_kg", Label: "Poids sac (kg)", Type: TypeDecimal},
		},
		Editable: []string{ColCodeVariete, "libelle", "calibre", "fournisseur", "poids_sac_kg"},
		Dropdowns: []Dropdown{
			{Column: ColCodeVariete, Kind: DropdownQuery, Entity: "varietes", ValueColumn: ColCodeVariete},
			{Column: "fournisseur", Kind: DropdownDistinct, AllowNew: true},
		},
		Required: []string{ColCodePlant, ColCodeVariete},
		BusinessKeys: []BusinessKey{
			{Constraint: UQPlantCode, Column: ColCodePlant, Message: "Ce code plant existe déjà"},
		},
		HasCreatedAt: true,
		HasUpdatedAt: true,
		OrderBy:      ColCodePlant,
	}
}

func SitesStockage() *Table {
	return &Table{
		Name:       "sites_stockage",
		Label:      "Sites de stockage",
		Table:      "ref_sites_stockage",
		PrimaryKey: ColID,
		PageGroup:  access.GroupReferences,
		Columns: []Column{
			{Name: ColCodeSite, Label: "Site", Type: TypeText},
			{Name: ColCodeEmplacement, Label: "Emplacement", Type: TypeText},
			{Name: "nom_complet", Label: "Nom complet", Type: TypeText},
			{Name: "capacite_max_pallox", Label: "Capacité max (pallox)", Type: TypeInteger},
			{Name: "capacite_max_tonnes", Label: "Capacité max (t)", Type: TypeDecimal},
			{Name: "statut", Label: "Statut", Type: TypeText},
		},
		Hidden: []Column{
			{Name: ColCodeUnique, Label: "Code unique", Type: TypeText},
		},
		Editable: []string{"nom_complet", "capacite_max_pallox", "capacite_max_tonnes", "statut"},
		Dropdowns: []Dropdown{
			{Column: ColCodeSite, Kind: DropdownDistinct, AllowNew: true},
			{Column: "statut", Kind: DropdownStatic, Values: []string{"DISPONIBLE", "PLEIN", "MAINTENANCE"}},
		},
		Required: []string{ColCodeSite, ColCodeEmplacement},
		BusinessKeys: []BusinessKey{
			{Constraint: UQSiteCode, Column: ColCodeUnique, Message: "Ce site de stockage (site + emplacement) existe déjà"},
		},
		AutoKey: &AutoKey{
			Column:    ColCodeUnique,
			Sources:   []string{ColCodeSite, ColCodeEmplacement},
			Separator: "_",
		},
		HasCreatedAt: true,
		HasUpdatedAt: true,
		OrderBy:      ColCodeUnique,
	}
}

func Emballages() *Table {
	return &Table{
		Name:       "emballages",
		Label:      "Codes emballage",
		Table:      "ref_emballages",
		PrimaryKey: ColID,
		PageGroup:  access.GroupReferences,
		Columns: []Column{
			{Name: ColCodeEmballage, Label: "Code emballage", Type: TypeText},
			{Name: "atelier", Label: "Atelier", Type: TypeText},
			{Name: "libelle", Label: "Libellé", Type: TypeText},
			{Name: "nb_uvc", Label: "Nb UVC", Type: TypeInteger},
			{Name: "poids_uvc_kg", Label: "Poids UVC (kg)", Type: TypeDecimal},
		},
		Editable: []string{"atelier", "libelle", "nb_uvc", "poids_uvc_kg"},
		Dropdowns: []Dropdown{
			{Column: "atelier", Kind: DropdownStatic, Values: []string{"SBU", "RBO", "LAVAGE", "EXTERNE"}},
		},
		Required: []string{ColCodeEmballage, "atelier"},
		BusinessKeys: []BusinessKey{
			{Constraint: UQEmballageCode, Column: ColCodeEmballage, Message: "Ce code emballage existe déjà"},
		},
		HasCreatedAt: true,
		HasUpdatedAt: true,
		OrderBy:      ColCodeEmballage,
	}
}

func ProduitsCommerciaux() *Table {
	return &Table{
		Name:       "produits_commerciaux",
		Label:      "Produits commerciaux",
		Table:      "ref_produits_commerciaux",
		PrimaryKey: ColID,
		PageGroup:  access.GroupReferences,
		Columns: []Column{
			{Name: ColCodeProduit, Label: "Code produit", Type: TypeText},
			{Name: "marque", Label: "Marque", Type: TypeText},
			{Name: "libelle", Label: "Libellé", Type: TypeText},
			{Name: ColCodeVariete, Label: "Code variété", Type: TypeText},
			{Name: "poids_unitaire_kg", Label: "Poids unitaire (kg)", Type: TypeDecimal},
			{Name: ColPrixUnitaire, Label: "Prix unitaire", Type: TypeDecimal},
			{Name: ColUnitePrix, Label: "Unité prix", Type: TypeText},
			{Name: "is_bio", Label: "Bio", Type: TypeBool},
		},
		Editable: []string{"marque", "libelle", ColCodeVariete, "poids_unitaire_kg", ColPrixUnitaire, ColUnitePrix, "is_bio"},
		Calculated: []Calculated{
			{
				Column:  Column{Name: "prix_affiche", Label: "Prix", Type: TypeText},
				Sources: []string{ColPrixUnitaire, ColUnitePrix},
				Derive:  derivePrixAffiche,
			},
		},
		Dropdowns: []Dropdown{
			{Column: "marque", Kind: DropdownDistinct, AllowNew: true},
			{Column: ColCodeVariete, Kind: DropdownQuery, Entity: "varietes", ValueColumn: ColCodeVariete},
			{Column: ColUnitePrix, Kind: DropdownStatic, Values: []string{"kg", "colis", "unité", "tonne"}},
		},
		Required: []string{ColCodeProduit, "libelle"},
		BusinessKeys: []BusinessKey{
			{Constraint: UQProduitCode, Column: ColCodeProduit, Message: "Ce code produit existe déjà"},
		},
		HasCreatedAt: true,
		HasUpdatedAt: true,
		OrderBy:      ColCodeProduit,
	}
}

func TypesDechets() *Table {
	return &Table{
		Name:       "types_dechets",
		Label:      "Types de déchets",
		Table:      "ref_types_dechets",
		PrimaryKey: ColID,
		PageGroup:  access.GroupReferences,
		Columns: []Column{
			{Name: "code", Label: "Code", Type: TypeText},
			{Name: "libelle", Label: "Libellé", Type: TypeText},
			{Name: "valorisable", Label: "Valorisable", Type: TypeBool},
		},
		Hidden: []Column{
			{Name: "description", Label: "Description", Type: TypeText},
		},
		Editable: []string{"libelle", "valorisable", "description"},
		Required: []string{"code", "libelle"},
		BusinessKeys: []BusinessKey{
			{Constraint: UQTypeDechetCode, Column: "code", Message: "Ce code déchet existe déjà"},
		},
		HasCreatedAt: true,
		OrderBy:      "code",
	}
}

func LotsBruts() *Table {
	return &Table{
		Name:       "lots_bruts",
		Label:      "Lots bruts",
		Table:      "lots_bruts",
		PrimaryKey: ColID,
		PageGroup:  access.GroupStock,
		Columns: []Column{
			{Name: ColCodeLot, Label: "Code lot", Type: TypeText},
			{Name: ColNomUsage, Label: "Nom d'usage", Type: TypeText},
			{Name: ColCodeProducteur, Label: "Code producteur", Type: TypeText},
			{Name: ColCodeVariete, Label: "Code variété", Type: TypeText},
			{Name: ColDateEntree, Label: "Date entrée stock", Type: TypeDate},
			{Name: ColSiteStockage, Label: "Site", Type: TypeText},
			{Name: "emplacement_stockage", Label: "Emplacement", Type: TypeText},
			{Name: ColNombreUnites, Label: "Nb unités", Type: TypeInteger},
			{Name: "type_conditionnement", Label: "Conditionnement", Type: TypeText},
			{Name: ColPoidsBrutKg, Label: "Poids brut (kg)", Type: TypeDecimal},
			{Name: ColPoidsNetLaveKg, Label: "Poids net lavé (kg)", Type: TypeDecimal},
			{Name: ColPrixAchatTonne, Label: "Prix achat (€/t)", Type: TypeDecimal},
			{Name: "statut", Label: "Statut", Type: TypeText},
		},
		Hidden: []Column{
			{Name: "calibre_min", Label: "Calibre min", Type: TypeInteger},
			{Name: "calibre_max", Label: "Calibre max", Type: TypeInteger},
			{Name: "notes", Label: "Notes", Type: TypeText},
		},
		Editable: []string{
			ColNomUsage, ColDateEntree, ColSiteStockage, "emplacement_stockage", ColNombreUnites,
			"type_conditionnement", ColPoidsBrutKg, ColPoidsNetLaveKg, ColPrixAchatTonne, "statut",
			"calibre_min", "calibre_max", "notes",
		},
		Calculated: []Calculated{
			{
				Column:  Column{Name: "age_jours", Label: "Âge (jours)", Type: TypeInteger},
				Sources: []string{ColDateEntree},
				Derive:  deriveAgeJours,
			},
			{
				Column:  Column{Name: "valeur_lot_euro", Label: "Valeur (€)", Type: TypeDecimal},
				Sources: []string{ColPoidsBrutKg, ColPrixAchatTonne},
				Derive:  deriveValeurLot,
			},
			{
				Column:  Column{Name: "perte_lavage_pct", Label: "Perte lavage (%)", Type: TypeDecimal},
				Sources: []string{ColPoidsBrutKg, ColPoidsNetLaveKg},
				Derive:  derivePerteLavage,
			},
		},
		Lookups: []Lookup{
			{
				Column:     Column{Name: "variete", Label: "Variété", Type: TypeText},
				Source:     ColCodeVariete,
				Entity:     "varietes",
				CodeColumn: ColCodeVariete,
				NameColumn: ColNomVariete,
			},
			{
				Column:     Column{Name: "producteur", Label: "Producteur", Type: TypeText},
				Source:     ColCodeProducteur,
				Entity:     "producteurs",
				CodeColumn: ColCodeProducteur,
				NameColumn: ColNomProducteur,
			},
		},
		Dropdowns: []Dropdown{
			{Column: ColCodeVariete, Kind: DropdownQuery, Entity: "varietes", ValueColumn: ColCodeVariete},
			{Column: ColCodeProducteur, Kind: DropdownQuery, Entity: "producteurs", ValueColumn: ColCodeProducteur},
			{Column: ColSiteStockage, Kind: DropdownQuery, Entity: "sites_stockage", ValueColumn: ColCodeSite},
			{Column: "type_conditionnement", Kind: DropdownStatic, Values: []string{"Pallox", "Big bag", "Vrac"}},
			{Column: "statut", Kind: DropdownStatic, Values: []string{"EN_STOCK", "EN_LAVAGE", "EXPEDIE", "CONSOMME"}},
		},
		Required: []string{ColCodeLot, ColCodeProducteur, ColCodeVariete, ColDateEntree},
		BusinessKeys: []BusinessKey{
			{Constraint: UQLotCode, Column: ColCodeLot, Message: "Ce code lot existe déjà"},
		},
		HasCreatedAt: true,
		HasUpdatedAt: true,
		OrderBy:      ColDateEntree + " DESC, " + ColID,
	}
}
