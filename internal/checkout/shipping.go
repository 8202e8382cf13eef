package checkout

import (
	"fmt"

	"github.com/firmsnap/liveshop/internal/commerce"
	"github.com/firmsnap/liveshop/internal/money"
)

// ShippingOption is the single shipping rate offered at checkout.
type ShippingOption struct {
	DisplayName      string
	Cost             money.Money
	AllowedCountries []string // ISO 3166-1 alpha-2
}

var euCountryCodes = map[string]string{
	"Austria":        "AT",
	"Belgium":        "BE",
	"Bulgaria":       "BG",
	"Croatia":        "HR",
	"Cyprus":         "CY",
	"Czech Republic": "CZ",
	"Denmark":        "DK",
	"Estonia":        "EE",
	"Finland":        "FI",
	"France":         "FR",
	"Germany":        "DE",
	"Greece":         "GR",
	"Hungary":        "HU",
	"Ireland":        "IE",
	"Italy":          "IT",
	"Latvia":         "LV",
	"Lithuania":      "LT",
	"Luxembourg":     "LU",
	"Malta":          "MT",
	"Netherlands":    "NL",
	"Poland":         "PL",
	"Portugal":       "PT",
	"Romania":        "RO",
	"Slovakia":       "SK",
	"Slovenia":       "SI",
	"Spain":          "ES",
	"Sweden":         "SE",
}

// CountryToISOCode maps an EU country name to its ISO code.
func CountryToISOCode(country string) (string, error) {
	code, ok := euCountryCodes[country]
	if !ok {
		return "", fmt.Errorf("invalid country: %s", country)
	}
	return code, nil
}

// AllEUISOCodes returns the ISO codes of every supported EU country.
func AllEUISOCodes() []string {
	codes := make([]string, 0, len(euCountryCodes))
	for _, code := range euCountryCodes {
		codes = append(codes, code)
	}
	return codes
}

// BuildShippingOption picks the domestic rate when the buyer is in the
// seller's country, the EU-wide rate otherwise.
func BuildShippingOption(buyerCountry string, listing commerce.Listing) (ShippingOption, error) {
	if buyerCountry == listing.SellerCountry {
		code, err := CountryToISOCode(listing.SellerCountry)
		if err != nil {
			return ShippingOption{}, err
		}
		return ShippingOption{
			DisplayName:      fmt.Sprintf("Domestic Shipping Within %s", listing.SellerCountry),
			Cost:             listing.ShippingDomesticPrice,
			AllowedCountries: []string{code},
		}, nil
	}

	return ShippingOption{
		DisplayName:      "EU Shipping",
		Cost:             listing.ShippingEUPrice,
		AllowedCountries: AllEUISOCodes(),
	}, nil
}
