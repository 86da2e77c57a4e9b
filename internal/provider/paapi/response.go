package paapi

import "github.com/mandimonitor/core/pkg/models"

// The vendor's JSON response shapes, trimmed to the fields MandiMonitor
// consumes. Field names mirror PA-API v5's actual schema so a reader
// comparing against vendor documentation can follow along.

type getItemsResponse struct {
	ItemsResult struct {
		Items []vendorItem `json:"Items"`
	} `json:"ItemsResult"`
}

type searchItemsResponse struct {
	SearchResult struct {
		Items []vendorItem `json:"Items"`
	} `json:"SearchResult"`
}

type vendorItem struct {
	ASIN     string `json:"ASIN"`
	ItemInfo struct {
		Title struct {
			DisplayValue string `json:"DisplayValue"`
		} `json:"Title"`
		ByLineInfo struct {
			Brand struct {
				DisplayValue string `json:"DisplayValue"`
			} `json:"Brand"`
		} `json:"ByLineInfo"`
		Features struct {
			DisplayValues []string `json:"DisplayValues"`
		} `json:"Features"`
		TechnicalInfo struct {
			DisplayValues map[string]string `json:"DisplayValues"`
		} `json:"TechnicalInfo"`
	} `json:"ItemInfo"`
	Offers struct {
		Listings []struct {
			Price struct {
				Amount int64 `json:"Amount"` // paise
			} `json:"Price"`
			SavingBasis struct {
				Amount int64 `json:"Amount"` // paise
			} `json:"SavingBasis"`
		} `json:"Listings"`
	} `json:"Offers"`
	Images struct {
		Primary struct {
			Large struct {
				URL string `json:"URL"`
			} `json:"Large"`
		} `json:"Primary"`
	} `json:"Images"`
	DetailPageURL string `json:"DetailPageURL"`
}

func (v *vendorItem) toProduct() *models.Product {
	p := &models.Product{
		ASIN:        v.ASIN,
		Title:       v.ItemInfo.Title.DisplayValue,
		Brand:       v.ItemInfo.ByLineInfo.Brand.DisplayValue,
		URL:         v.DetailPageURL,
		ImageURL:    v.Images.Primary.Large.URL,
	}
	if len(v.Offers.Listings) > 0 {
		p.Price = models.Paise(v.Offers.Listings[0].Price.Amount)
		p.ListPrice = models.Paise(v.Offers.Listings[0].SavingBasis.Amount)
	}
	if len(v.ItemInfo.Features.DisplayValues) > 0 {
		p.FeatureText = joinFeatures(v.ItemInfo.Features.DisplayValues)
	}
	if len(v.ItemInfo.TechnicalInfo.DisplayValues) > 0 {
		p.TechnicalInfo = v.ItemInfo.TechnicalInfo.DisplayValues
	}
	return p
}

func joinFeatures(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ". "
		}
		out += v
	}
	return out
}
