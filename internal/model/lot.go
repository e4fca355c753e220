package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is a raw lot received into stock. CodeVariete and CodeProducteur may
// hold either the referenced code or its display name on older rows.
type Lot struct {
	ID                  int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	CodeLotInterne      string              `gorm:"type:varchar(50);uniqueIndex:uq_lots_bruts_code_lot_interne;not null" json:"code_lot_interne"`
	NomUsage            *string             `gorm:"type:varchar(255)" json:"nom_usage"`
	CodeProducteur      string              `gorm:"type:varchar(255);not null;index" json:"code_producteur"`
	CodeVariete         string              `gorm:"type:varchar(255);not null;index" json:"code_variete"`
	DateEntreeStock     time.Time           `gorm:"type:date;not null;index" json:"date_entree_stock"`
	SiteStockage        *string             `gorm:"type:varchar(50)" json:"site_stockage"`
	EmplacementStockage *string             `gorm:"type:varchar(50)" json:"emplacement_stockage"`
	NombreUnites        *int64              `json:"nombre_unites"`
	TypeConditionnement *string             `gorm:"type:varchar(30)" json:"type_conditionnement"`
	PoidsTotalBrutKg    decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"poids_total_brut_kg"`
	PoidsNetLaveKg      decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"poids_net_lave_kg"`
	PrixAchatEuroTonne  decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"prix_achat_euro_tonne"`
	Statut              *string             `gorm:"type:varchar(30)" json:"statut"`
	CalibreMin          *int64              `json:"calibre_min"`
	CalibreMax          *int64              `json:"calibre_max"`
	Notes               *string             `gorm:"type:text" json:"notes"`
	IsActive            bool                `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

func (Lot) TableName() string { return "lots_bruts" }
