package core

import (
	"sort"
	"strings"
)

// AccountDirectory resolves tenant configuration by account code. It is built
// once at process start and never mutated, so it is safe for concurrent use
// without locking.
type AccountDirectory struct {
	accounts map[string]AccountConfig
	codes    []string
}

func NewAccountDirectory(accounts map[string]AccountConfig) *AccountDirectory {
	dir := &AccountDirectory{accounts: make(map[string]AccountConfig, len(accounts))}
	for code, account := range accounts {
		normalized := NormalizeAccountCode(code)
		if normalized == "" {
			continue
		}
		account.Code = normalized
		dir.accounts[normalized] = account
		dir.codes = append(dir.codes, normalized)
	}
	sort.Strings(dir.codes)
	return dir
}

func NormalizeAccountCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup returns false for unknown codes; a missing tenant is a valid "not
// configured" outcome.
func (d *AccountDirectory) Lookup(accountCode string) (AccountConfig, bool) {
	if d == nil {
		return AccountConfig{}, false
	}
	account, ok := d.accounts[NormalizeAccountCode(accountCode)]
	return account, ok
}

func (d *AccountDirectory) Codes() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.codes...)
}

// AccountCodeForShop maps a commerce shop domain to an account code. A
// configured shop match wins; otherwise the last hyphen segment of the shop
// name is used, and finally the shop name itself, both upper-cased.
func (d *AccountDirectory) AccountCodeForShop(shopDomain string) string {
	shop := strings.TrimSpace(strings.ToLower(shopDomain))
	shop = strings.TrimPrefix(shop, "https://")
	shop = strings.TrimPrefix(shop, "http://")
	shop = strings.TrimSuffix(shop, "/")
	shop = strings.TrimSuffix(shop, ".myshopify.com")
	if shop == "" {
		return ""
	}
	if d != nil {
		for _, code := range d.codes {
			if strings.EqualFold(d.accounts[code].ShopName(), shop) {
				return code
			}
		}
	}
	if parts := strings.Split(shop, "-"); len(parts) > 1 {
		if last := strings.TrimSpace(parts[len(parts)-1]); last != "" {
			return NormalizeAccountCode(last)
		}
	}
	return NormalizeAccountCode(shop)
}
