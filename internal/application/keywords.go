package application

// CriticalKeywords mark accounts whose compromise has outsized impact. They
// are matched case-insensitively against a record's name and URL.
var CriticalKeywords = []string{
	// banking and finance
	"bank", "chase", "wellsfargo", "citi", "barclays", "hsbc", "paypal", "venmo",
	"stripe", "wise.com", "revolut", "schwab", "fidelity", "vanguard", "amex",
	"americanexpress", "creditcard", "mortgage", "invest", "brokerage",
	// crypto
	"coinbase", "binance", "kraken", "crypto", "wallet", "ledger", "metamask",
	// work and infrastructure
	"aws.amazon", "console.cloud.google", "portal.azure", "github", "gitlab",
	"okta", "slack", "atlassian", "vpn", "admin",
	// email
	"gmail", "mail.google", "outlook", "hotmail", "protonmail", "icloud", "yahoo",
	// government and tax
	".gov", "irs", "tax", "passport", "socialsecurity",
	// healthcare and insurance
	"health", "medical", "patient", "pharmacy", "insurance",
	// utilities and telecom
	"utility", "electric", "water", "verizon", "t-mobile", "comcast",
}

// CommonPasswords are substrings of widely reused passwords. A secret
// containing any of them, ignoring case, is treated as guessable.
var CommonPasswords = []string{
	"password", "passw0rd", "123456", "12345678", "qwerty", "letmein", "welcome",
	"iloveyou", "monkey", "dragon", "master", "sunshine", "princess", "football",
	"baseball", "shadow", "trustno1", "starwars", "freedom", "whatever",
	"111111", "000000", "abc123", "changeme", "secret", "login", "hello",
	"admin",
}
