package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reference tables. Index names are the constraint names the record editor
// maps back to business keys, so they must stay in sync with internal/schema.

type Variety struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CodeVariete  string    `gorm:"type:varchar(50);uniqueIndex:uq_ref_varietes_code_variete;not null" json:"code_variete"`
	NomVariete   string    `gorm:"type:varchar(255);not null" json:"nom_variete"`
	TypeVariete  *string   `gorm:"type:varchar(100)" json:"type_variete"`
	Utilisation  *string   `gorm:"type:varchar(100)" json:"utilisation"`
	CouleurPeau  *string   `gorm:"type:varchar(50)" json:"couleur_peau"`
	CouleurChair *string   `gorm:"type:varchar(50)" json:"couleur_chair"`
	Notes        *string   `gorm:"type:text" json:"notes"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Variety) TableName() string { return "ref_varietes" }

type Producer struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CodeProducteur   string    `gorm:"type:varchar(50);uniqueIndex:uq_ref_producteurs_code_producteur;not null" json:"code_producteur"`
	Nom              string    `gorm:"type:varchar(255);not null" json:"nom"`
	Adresse          *string   `gorm:"type:varchar(255)" json:"adresse"`
	CodePostal       *string   `gorm:"type:varchar(10)" json:"code_postal"`
	Ville            *string   `gorm:"type:varchar(100)" json:"ville"`
	Telephone        *string   `gorm:"type:varchar(30)" json:"telephone"`
	Email            *string   `gorm:"type:varchar(255)" json:"email"`
	AcheteurReferent *string   `gorm:"type:varchar(100)" json:"acheteur_referent"`
	Statut           *string   `gorm:"type:varchar(30)" json:"statut"`
	Siret            *string   `gorm:"type:varchar(20)" json:"siret"`
	GlobalGap        *string   `gorm:"type:varchar(50)" json:"global_gap"`
	Notes            *string   `gorm:"type:text" json:"notes"`
	IsActive         bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Producer) TableName() string { return "ref_producteurs" }

type Plant struct {
	ID          int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	CodePlant   string              `gorm:"type:varchar(50);uniqueIndex:uq_ref_plants_code_plant;not null" json:"code_plant"`
	CodeVariete string              `gorm:"type:varchar(50);not null;index" json:"code_variete"`
	Libelle     *string             `gorm:"type:varchar(255)" json:"libelle"`
	Calibre     *string             `gorm:"type:varchar(30)" json:"calibre"`
	Fournisseur *string             `gorm:"type:varchar(255)" json:"fournisseur"`
	PoidsSacKg  decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"poids_sac_kg"`
	IsActive    bool                `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (Plant) TableName() string { return "ref_plants" }

// StorageSite is one (site, location) pair; CodeUnique is built from both at creation.
type StorageSite struct {
	ID                int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	CodeSite          string              `gorm:"type:varchar(50);not null" json:"code_site"`
	CodeEmplacement   string              `gorm:"type:varchar(50);not null" json:"code_emplacement"`
	CodeUnique        string              `gorm:"type:varchar(101);uniqueIndex:uq_ref_sites_stockage_code_unique;not null" json:"code_unique"`
	NomComplet        *string             `gorm:"type:varchar(255)" json:"nom_complet"`
	CapaciteMaxPallox *int64              `json:"capacite_max_pallox"`
	CapaciteMaxTonnes decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"capacite_max_tonnes"`
	Statut            *string             `gorm:"type:varchar(30)" json:"statut"`
	IsActive          bool                `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func (StorageSite) TableName() string { return "ref_sites_stockage" }

type Packaging struct {
	ID            int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	CodeEmballage string              `gorm:"type:varchar(50);uniqueIndex:uq_ref_emballages_code_emballage;not null" json:"code_emballage"`
	Atelier       string              `gorm:"type:varchar(30);not null" json:"atelier"`
	Libelle       *string             `gorm:"type:varchar(255)" json:"libelle"`
	NbUvc         *int64              `json:"nb_uvc"`
	PoidsUvcKg    decimal.NullDecimal `gorm:"type:numeric(10,3)" json:"poids_uvc_kg"`
	IsActive      bool                `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (Packaging) TableName() string { return "ref_emballages" }

type CommercialProduct struct {
	ID              int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	CodeProduit     string              `gorm:"type:varchar(50);uniqueIndex:uq_ref_produits_commerciaux_code_produit;not null" json:"code_produit"`
	Marque          *string             `gorm:"type:varchar(100)" json:"marque"`
	Libelle         string              `gorm:"type:varchar(255);not null" json:"libelle"`
	CodeVariete     *string             `gorm:"type:varchar(50);index" json:"code_variete"`
	PoidsUnitaireKg decimal.NullDecimal `gorm:"type:numeric(10,3)" json:"poids_unitaire_kg"`
	PrixUnitaire    decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"prix_unitaire"`
	UnitePrix       *string             `gorm:"type:varchar(20)" json:"unite_prix"`
	IsBio           bool                `gorm:"not null;default:false" json:"is_bio"`
	IsActive        bool                `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func (CommercialProduct) TableName() string { return "ref_produits_commerciaux" }

// WasteType has no updated_at column.
type WasteType struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Code        string    `gorm:"type:varchar(30);uniqueIndex:uq_ref_types_dechets_code;not null" json:"code"`
	Libelle     string    `gorm:"type:varchar(255);not null" json:"libelle"`
	Valorisable bool      `gorm:"not null;default:false" json:"valorisable"`
	Description *string   `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func (WasteType) TableName() string { return "ref_types_dechets" }
