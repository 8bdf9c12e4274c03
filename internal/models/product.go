// internal/models/product.go
package models

// Product is the stored row for a health functional food product, keyed by
// the identifier derived from its registration number.
type Product struct {
	PrdID            int64   `json:"prd_id" gorm:"column:prd_id;primaryKey;autoIncrement:false"`
	ProductName      string  `json:"product_name" gorm:"size:500;not null"`
	CompanyName      string  `json:"company_name" gorm:"size:255;index"`
	RegistrationNo   string  `json:"registration_no" gorm:"size:100;index"`
	ExpirationPeriod *string `json:"expiration_period" gorm:"type:text"`
	MainFunction     *string `json:"main_function" gorm:"type:text"`
	IntakeHint       *string `json:"intake_hint" gorm:"type:text"`
	Preservation     *string `json:"preservation" gorm:"type:text"`
	BaseStandard     *string `json:"base_standard" gorm:"type:text"`
	SrvUse           *string `json:"srv_use" gorm:"type:text"`
	BaseModel
}

func (Product) TableName() string {
	return "products"
}

// ProductRecord is the canonical, store-independent product shape returned
// to callers. A nil optional field means the upstream item did not carry it.
type ProductRecord struct {
	ID               int64   `json:"prd_id"`
	ProductName      string  `json:"product_name"`
	CompanyName      string  `json:"company_name"`
	RegistrationNo   string  `json:"registration_no"`
	ExpirationPeriod *string `json:"expiration_period,omitempty"`
	MainFunction     *string `json:"main_function,omitempty"`
	IntakeHint       *string `json:"intake_hint,omitempty"`
	Preservation     *string `json:"preservation,omitempty"`
	BaseStandard     *string `json:"base_standard,omitempty"`
	SrvUse           *string `json:"srv_use,omitempty"`
}

// ProductFromRecord builds the row written by an upsert. Every field is
// copied so that an update overwrites the stored row completely.
func ProductFromRecord(r ProductRecord) *Product {
	return &Product{
		PrdID:            r.ID,
		ProductName:      r.ProductName,
		CompanyName:      r.CompanyName,
		RegistrationNo:   r.RegistrationNo,
		ExpirationPeriod: r.ExpirationPeriod,
		MainFunction:     r.MainFunction,
		IntakeHint:       r.IntakeHint,
		Preservation:     r.Preservation,
		BaseStandard:     r.BaseStandard,
		SrvUse:           r.SrvUse,
	}
}

func (p *Product) ToRecord() ProductRecord {
	return ProductRecord{
		ID:               p.PrdID,
		ProductName:      p.ProductName,
		CompanyName:      p.CompanyName,
		RegistrationNo:   p.RegistrationNo,
		ExpirationPeriod: p.ExpirationPeriod,
		MainFunction:     p.MainFunction,
		IntakeHint:       p.IntakeHint,
		Preservation:     p.Preservation,
		BaseStandard:     p.BaseStandard,
		SrvUse:           p.SrvUse,
	}
}
