package classify

// ETF is a built-in exchange-traded fund entry.
type ETF struct {
	CIK      string
	Title    string
	Provider string
}

var knownETFs = map[string]ETF{
	"SPY":  {"0000884394", "SPDR S&P 500 ETF TRUST", ProviderSPDR},
	"DIA":  {"0001041130", "SPDR DOW JONES INDUSTRIAL AVERAGE ETF TRUST", ProviderSPDR},
	"GLD":  {"0001222333", "SPDR GOLD TRUST", ProviderSPDR},
	"XLF":  {"0001064641", "SELECT SECTOR SPDR TRUST", ProviderSPDR},
	"XLK":  {"0001064641", "SELECT SECTOR SPDR TRUST", ProviderSPDR},
	"XLE":  {"0001064641", "SELECT SECTOR SPDR TRUST", ProviderSPDR},
	"XLV":  {"0001064641", "SELECT SECTOR SPDR TRUST", ProviderSPDR},
	"QQQ":  {"0001067839", "INVESCO QQQ TRUST, SERIES 1", ProviderInvesco},
	"QQQM": {"0001657201", "INVESCO EXCHANGE-TRADED SELF-INDEXED FUND TRUST", ProviderInvesco},
	"IWM":  {"0001100663", "ISHARES TRUST", ProviderIShares},
	"EFA":  {"0001100663", "ISHARES TRUST", ProviderIShares},
	"IEF":  {"0001100663", "ISHARES TRUST", ProviderIShares},
	"IJH":  {"0001100663", "ISHARES TRUST", ProviderIShares},
	"IJR":  {"0001100663", "ISHARES TRUST", ProviderIShares},
	"TLT":  {"0001100663", "ISHARES TRUST", ProviderIShares},
	"VTI":  {"0000036405", "VANGUARD INDEX FUNDS", ProviderVanguard},
	"VOO":  {"0000036405", "VANGUARD INDEX FUNDS", ProviderVanguard},
	"VEA":  {"0000891190", "VANGUARD TAX-MANAGED FUNDS", ProviderVanguard},
	"BND":  {"0000794105", "VANGUARD BOND INDEX FUNDS", ProviderVanguard},
	"ARKK": {"0001579982", "ARK ETF TRUST", ProviderARK},
	"SCHD": {"0001454889", "SCHWAB STRATEGIC TRUST", ProviderSchwab},
}

// KnownETF looks up a ticker in the built-in ETF table.
func KnownETF(ticker string) (ETF, bool) {
	e, ok := knownETFs[ticker]
	return e, ok
}
