package paapi

// ResourceBundle selects which fields the vendor populates on a response,
// trading payload size against completeness: the cache-miss refresh path
// only needs price and title, while watch creation needs everything the
// Feature Matcher extracts from.
type ResourceBundle []string

var (
	// ResourcesMinimal fetches only what the Price Oracle needs to refresh
	// a cache entry.
	ResourcesMinimal = ResourceBundle{
		"ItemInfo.Title",
		"Offers.Listings.Price",
	}

	// ResourcesDetailed adds list price and the primary image, enough for
	// the budget/brand/discount filter stages and outbound card rendering.
	ResourcesDetailed = ResourceBundle{
		"ItemInfo.Title",
		"ItemInfo.ByLineInfo",
		"Offers.Listings.Price",
		"Offers.Listings.SavingBasis",
		"Images.Primary.Large",
	}

	// ResourcesFull adds features text and technical details, needed by
	// the Feature Matcher during watch creation and feature-match re-rank.
	ResourcesFull = ResourceBundle{
		"ItemInfo.Title",
		"ItemInfo.ByLineInfo",
		"ItemInfo.Features",
		"ItemInfo.TechnicalInfo",
		"Offers.Listings.Price",
		"Offers.Listings.SavingBasis",
		"Images.Primary.Large",
	}
)
