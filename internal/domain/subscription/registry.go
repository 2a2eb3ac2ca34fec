package subscription

import "strings"

// KnownMerchant is one entry in the static known-merchant registry.
// Aliases are matched as substrings of the canonical merchant key;
// the longest matching alias wins so "DISCORD NITRO" beats "DISCORD".
type KnownMerchant struct {
	Alias     string // uppercase substring to match against the key
	Name      string // friendly display name
	Category  string
	Essential bool
}

// Registry resolves canonical merchant keys to known subscription
// providers. It is immutable after construction.
type Registry struct {
	entries []KnownMerchant
}

// NewRegistry builds a registry from the given entries. Alias matching
// is case-insensitive; aliases are stored uppercased.
func NewRegistry(entries []KnownMerchant) *Registry {
	normalized := make([]KnownMerchant, len(entries))
	for i, e := range entries {
		e.Alias = strings.ToUpper(e.Alias)
		normalized[i] = e
	}
	return &Registry{entries: normalized}
}

// DefaultRegistry returns the built-in provider table.
func DefaultRegistry() *Registry {
	return NewRegistry(defaultKnownMerchants)
}

// Lookup finds the known merchant whose alias is contained in the
// canonical key, preferring the longest alias. ok is false on a miss;
// the caller falls through to the transaction's own category.
func (r *Registry) Lookup(key string) (KnownMerchant, bool) {
	upper := strings.ToUpper(key)

	var best KnownMerchant
	bestLen := 0
	for _, e := range r.entries {
		if strings.Contains(upper, e.Alias) && len(e.Alias) > bestLen {
			best = e
			bestLen = len(e.Alias)
		}
	}
	return best, bestLen > 0
}

var defaultKnownMerchants = []KnownMerchant{
	// Streaming & entertainment
	{Alias: "NETFLIX", Name: "Netflix", Category: "Streaming"},
	{Alias: "SPOTIFY", Name: "Spotify", Category: "Streaming"},
	{Alias: "HULU", Name: "Hulu", Category: "Streaming"},
	{Alias: "DISNEY PLUS", Name: "Disney+", Category: "Streaming"},
	{Alias: "DISNEYPLUS", Name: "Disney+", Category: "Streaming"},
	{Alias: "HBO MAX", Name: "Max", Category: "Streaming"},
	{Alias: "PARAMOUNT+", Name: "Paramount+", Category: "Streaming"},
	{Alias: "YOUTUBE PREMIUM", Name: "YouTube Premium", Category: "Streaming"},
	{Alias: "AUDIBLE", Name: "Audible", Category: "Streaming"},
	{Alias: "AMAZON PRIME", Name: "Amazon Prime", Category: "Streaming"},
	{Alias: "PRIME VIDEO", Name: "Amazon Prime", Category: "Streaming"},

	// Software & services
	{Alias: "ADOBE", Name: "Adobe Creative Cloud", Category: "Software"},
	{Alias: "GITHUB", Name: "GitHub", Category: "Software"},
	{Alias: "DROPBOX", Name: "Dropbox", Category: "Software"},
	{Alias: "MICROSOFT 365", Name: "Microsoft 365", Category: "Software"},
	{Alias: "GOOGLE ONE", Name: "Google One", Category: "Software"},
	{Alias: "ICLOUD", Name: "iCloud+", Category: "Software"},
	{Alias: "OPENAI CHATGPT", Name: "ChatGPT Plus", Category: "Software"},
	{Alias: "DISCORD NITRO", Name: "Discord Nitro", Category: "Software"},
	{Alias: "1PASSWORD", Name: "1Password", Category: "Software"},
	{Alias: "NORDVPN", Name: "NordVPN", Category: "Software"},

	// News & media
	{Alias: "NYTIMES", Name: "The New York Times", Category: "News"},
	{Alias: "WSJ", Name: "The Wall Street Journal", Category: "News"},

	// Fitness
	{Alias: "PLANET FIT", Name: "Planet Fitness", Category: "Fitness"},
	{Alias: "PELOTON", Name: "Peloton", Category: "Fitness"},
	{Alias: "24 HOUR FITNESS", Name: "24 Hour Fitness", Category: "Fitness"},

	// Essential bills: amounts drift, but the service should never be
	// flagged unused just because the biller is quiet for a month.
	{Alias: "GEICO", Name: "GEICO", Category: "Insurance", Essential: true},
	{Alias: "STATE FARM", Name: "State Farm", Category: "Insurance", Essential: true},
	{Alias: "PROGRESSIVE", Name: "Progressive", Category: "Insurance", Essential: true},
	{Alias: "COMCAST", Name: "Comcast Xfinity", Category: "Utilities", Essential: true},
	{Alias: "XFINITY", Name: "Comcast Xfinity", Category: "Utilities", Essential: true},
	{Alias: "VERIZON", Name: "Verizon", Category: "Utilities", Essential: true},
	{Alias: "T-MOBILE", Name: "T-Mobile", Category: "Utilities", Essential: true},
	{Alias: "AT&T", Name: "AT&T", Category: "Utilities", Essential: true},
	{Alias: "SPECTRUM", Name: "Spectrum", Category: "Utilities", Essential: true},
}
