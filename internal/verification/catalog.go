package verification

import (
	"govdoc/pkg/domain"

	"github.com/shopspring/decimal"
)

// ServiceDescriptor couples a service's verification configuration with its
// commercial attributes used by the wizard (base price, selectable options,
// delivery fees). Prices here are authoritative; client input never carries
// an amount.
type ServiceDescriptor struct {
	Config         domain.VerificationConfig
	BasePrice      decimal.Decimal
	Currency       string
	Options        []domain.SelectedOption
	DeliveryPrices map[domain.DeliveryMethod]decimal.Decimal
}

// Option looks up a selectable add-on by code.
func (d *ServiceDescriptor) Option(code string) (domain.SelectedOption, bool) {
	for _, opt := range d.Options {
		if opt.Code == code {
			return opt, true
		}
	}
	return domain.SelectedOption{}, false
}

func standardDeliveryPrices() map[domain.DeliveryMethod]decimal.Decimal {
	return map[domain.DeliveryMethod]decimal.Decimal{
		domain.DeliveryMethodCourier:    decimal.NewFromInt(19),
		domain.DeliveryMethodPickup:     decimal.Zero,
		domain.DeliveryMethodElectronic: decimal.Zero,
	}
}

// defaultCatalog holds the per-service declarative descriptors. The module
// toggles and option bags are jurisdiction policy supplied as data; nothing
// here is interpreted beyond enabled/disabled and the option flags.
func defaultCatalog() map[string]ServiceDescriptor {
	return map[string]ServiceDescriptor{
		"criminal-record-certificate": {
			Config: domain.VerificationConfig{
				ServiceID: "criminal-record-certificate",
				Modules: map[domain.ModuleKey]domain.ModuleConfig{
					domain.ModulePersonalIdentity: {
						Enabled: true,
						Options: domain.ModuleOptions{
							RequireParentNames:        true,
							RequireAddressCertificate: true,
							RequireSelfie:             true,
						},
					},
				},
			},
			BasePrice: decimal.NewFromInt(249),
			Currency:  "RON",
			Options: []domain.SelectedOption{
				{Code: "apostille", Label: "Apostille", Price: decimal.NewFromInt(150), Quantity: 0},
				{Code: "translation_en", Label: "Certified translation (EN)", Price: decimal.NewFromInt(90), Quantity: 0},
				{Code: "extra_copy", Label: "Additional certified copy", Price: decimal.NewFromInt(40), Quantity: 0},
			},
			DeliveryPrices: standardDeliveryPrices(),
		},
		"land-registry-extract": {
			Config: domain.VerificationConfig{
				ServiceID: "land-registry-extract",
				Modules: map[domain.ModuleKey]domain.ModuleConfig{
					domain.ModuleClientType: {Enabled: true},
					domain.ModulePersonalIdentity: {
						Enabled: true,
						Options: domain.ModuleOptions{AllowExpiredDocument: true},
					},
					domain.ModuleCompanyIdentity: {Enabled: true},
					domain.ModuleProperty:        {Enabled: true},
				},
			},
			BasePrice: decimal.NewFromInt(99),
			Currency:  "RON",
			Options: []domain.SelectedOption{
				{Code: "urgent", Label: "Urgent processing", Price: decimal.NewFromInt(120), Quantity: 0},
				{Code: "extra_copy", Label: "Additional certified copy", Price: decimal.NewFromInt(30), Quantity: 0},
			},
			DeliveryPrices: standardDeliveryPrices(),
		},
		"vehicle-history-report": {
			Config: domain.VerificationConfig{
				ServiceID: "vehicle-history-report",
				Modules: map[domain.ModuleKey]domain.ModuleConfig{
					domain.ModulePersonalIdentity: {Enabled: true},
					domain.ModuleVehicle:          {Enabled: true},
					domain.ModuleSignature:        {Enabled: true},
				},
			},
			BasePrice: decimal.NewFromInt(149),
			Currency:  "RON",
			Options: []domain.SelectedOption{
				{Code: "urgent", Label: "Urgent processing", Price: decimal.NewFromInt(100), Quantity: 0},
			},
			DeliveryPrices: standardDeliveryPrices(),
		},
	}
}
