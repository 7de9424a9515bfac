package paymentsense

import "strings"

// currencyNumeric maps ISO 4217 alphabetic codes to the numeric codes the gateway expects
var currencyNumeric = map[string]string{
	"AED": "784", "AUD": "036", "BGN": "975", "BHD": "048", "BRL": "986",
	"CAD": "124", "CHF": "756", "CNY": "156", "CZK": "203", "DKK": "208",
	"EGP": "818", "EUR": "978", "GBP": "826", "HKD": "344", "HRK": "191",
	"HUF": "348", "IDR": "360", "ILS": "376", "INR": "356", "ISK": "352",
	"JOD": "400", "JPY": "392", "KES": "404", "KRW": "410", "KWD": "414",
	"MAD": "504", "MXN": "484", "MYR": "458", "NGN": "566", "NOK": "578",
	"NZD": "554", "OMR": "512", "PHP": "608", "PKR": "586", "PLN": "985",
	"QAR": "634", "RON": "946", "RSD": "941", "RUB": "643", "SAR": "682",
	"SEK": "752", "SGD": "702", "THB": "764", "TRY": "949", "TWD": "901",
	"UAH": "980", "USD": "840", "VND": "704", "ZAR": "710",
}

// countryNumeric maps ISO 3166-1 alpha-2 codes to numeric codes
var countryNumeric = map[string]string{
	"AD": "20", "AE": "784", "AL": "8", "AR": "32", "AT": "40",
	"AU": "36", "BA": "70", "BE": "56", "BG": "100", "BH": "48",
	"BR": "76", "BY": "112", "CA": "124", "CH": "756", "CL": "152",
	"CN": "156", "CO": "170", "CY": "196", "CZ": "203", "DE": "276",
	"DK": "208", "EE": "233", "EG": "818", "ES": "724", "FI": "246",
	"FR": "250", "GB": "826", "GG": "831", "GI": "292", "GR": "300",
	"HK": "344", "HR": "191", "HU": "348", "ID": "360", "IE": "372",
	"IL": "376", "IM": "833", "IN": "356", "IS": "352", "IT": "380",
	"JE": "832", "JO": "400", "JP": "392", "KE": "404", "KR": "410",
	"KW": "414", "LI": "438", "LT": "440", "LU": "442", "LV": "428",
	"MA": "504", "MC": "492", "MD": "498", "ME": "499", "MK": "807",
	"MT": "470", "MX": "484", "MY": "458", "NG": "566", "NL": "528",
	"NO": "578", "NZ": "554", "OM": "512", "PE": "604", "PH": "608",
	"PK": "586", "PL": "616", "PT": "620", "QA": "634", "RO": "642",
	"RS": "688", "RU": "643", "SA": "682", "SE": "752", "SG": "702",
	"SI": "705", "SK": "703", "SM": "674", "TH": "764", "TR": "792",
	"TW": "158", "UA": "804", "US": "840", "VA": "336", "VN": "704",
	"ZA": "710",
}

// CurrencyNumericCode returns the ISO 4217 numeric code, or "" when unknown
func CurrencyNumericCode(alpha string) string {
	return currencyNumeric[strings.ToUpper(strings.TrimSpace(alpha))]
}

// CountryNumericCode returns the ISO 3166-1 numeric code, or "" when unknown
func CountryNumericCode(alpha2 string) string {
	return countryNumeric[strings.ToUpper(strings.TrimSpace(alpha2))]
}
