package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// PairSpec is one resolved pair with both venue-native symbols.
type PairSpec struct {
	Name          string // "BTC/KRW"
	Base          string // "BTC"
	Quote         string // "KRW"
	UpbitSymbol   string // "KRW-BTC"
	BithumbSymbol string // "BTC_KRW"
}

// ParsePair resolves a "BASE/QUOTE" name into venue symbols. Upbit
// markets are quote-first with a dash, Bithumb symbols base-first with
// an underscore.
func ParsePair(name string) (PairSpec, error) {
	parts := strings.Split(strings.TrimSpace(name), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return PairSpec{}, fmt.Errorf("pair %q: want BASE/QUOTE", name)
	}
	base := strings.ToUpper(parts[0])
	quote := strings.ToUpper(parts[1])
	return PairSpec{
		Name:          base + "/" + quote,
		Base:          base,
		Quote:         quote,
		UpbitSymbol:   quote + "-" + base,
		BithumbSymbol: base + "_" + quote,
	}, nil
}

// ResolvePairs builds the pair universe from trading.pairs, extended by
// trading.pairs_file when set. Duplicates collapse to the first
// occurrence. MAX_DRYRUN_PAIRS truncates the list, which keeps smoke
// runs over a large universe cheap.
func (c *Config) ResolvePairs() ([]PairSpec, error) {
	names := append([]string(nil), c.Trading.Pairs...)
	if c.Trading.PairsFile != "" {
		fromFile, err := readPairsFile(c.Trading.PairsFile)
		if err != nil {
			return nil, err
		}
		names = append(names, fromFile...)
	}

	seen := make(map[string]bool, len(names))
	pairs := make([]PairSpec, 0, len(names))
	for _, name := range names {
		spec, err := ParsePair(name)
		if err != nil {
			return nil, err
		}
		if seen[spec.Name] {
			continue
		}
		seen[spec.Name] = true
		pairs = append(pairs, spec)
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no trading pairs configured")
	}

	if raw := os.Getenv("MAX_DRYRUN_PAIRS"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return nil, fmt.Errorf("MAX_DRYRUN_PAIRS %q: want a positive integer", raw)
		}
		if len(pairs) > limit {
			pairs = pairs[:limit]
		}
	}
	return pairs, nil
}

// readPairsFile loads a YAML file of the form {pairs: [BTC/KRW, ...]}.
func readPairsFile(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read pairs file: %w", err)
	}
	return v.GetStringSlice("pairs"), nil
}
