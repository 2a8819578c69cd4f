package normalize

// Upstream field names drift across provider versions. Each canonical
// attribute reads from an ordered key list, first present value wins. New
// provider variants are handled by extending these lists, not by code
// changes.
var (
	addressKeys    = []string{"address", "fullAddress"}
	formattedKeys  = []string{"formattedAddress", "formatted_address"}
	streetKeys     = []string{"addressLine1", "streetAddress", "street"}
	cityKeys       = []string{"city"}
	stateKeys      = []string{"state", "stateCode"}
	postalCodeKeys = []string{"zipCode", "postalCode", "zip"}

	latitudeKeys  = []string{"latitude", "lat"}
	longitudeKeys = []string{"longitude", "lng", "lon"}

	bedroomsKeys      = []string{"bedrooms", "beds"}
	bathroomsKeys     = []string{"bathrooms", "baths"}
	squareFootageKeys = []string{"squareFootage", "sqft", "livingArea"}
	lotSizeKeys       = []string{"lotSize", "lotSquareFootage"}
	yearBuiltKeys     = []string{"yearBuilt"}
	propertyTypeKeys  = []string{"propertyType", "propertySubType"}

	estimatedValueKeys = []string{"estimatedValue", "priceEstimate", "price", "value"}
	estimatedRentKeys  = []string{"estimatedRent", "rentEstimate", "rent"}
	lastSoldPriceKeys  = []string{"lastSoldPrice", "lastSalePrice", "salePrice"}
	lastSoldDateKeys   = []string{"lastSoldDate", "lastSaleDate", "saleDate"}

	imageURLKeys   = []string{"imageUrl", "photoUrl", "primaryImageUrl"}
	listingURLKeys = []string{"listingUrl", "propertyUrl", "url"}

	distanceKeys   = []string{"distance", "distanceMiles"}
	similarityKeys = []string{"similarityScore", "correlation", "score"}
)
