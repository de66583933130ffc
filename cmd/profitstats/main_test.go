package main

import (
	"strings"
	"testing"
)

func TestAggregate(t *testing.T) {
	t.Parallel()
	log := strings.Join([]string{
		`{"time":"t","level":"INFO","msg":"starting engine","pairs":2}`,
		`{"time":"t","level":"INFO","msg":"trade executed","pair":"BTC/KRW","direction":"upbit_sell","volume":"0.1","spread":"0.06","expected_profit":"0.056"}`,
		`{"time":"t","level":"INFO","msg":"trade executed","pair":"BTC/KRW","direction":"bithumb_sell","volume":"0.2","spread":"0.02","expected_profit":"0.016"}`,
		`{"time":"t","level":"INFO","msg":"trade executed","pair":"ETH/KRW","direction":"upbit_sell","volume":"1","spread":"0.01","expected_profit":"0.006"}`,
		`not json at all`,
		`{"time":"t","level":"INFO","msg":"signal rejected","pair":"BTC/KRW","reason":"circuit breaker open"}`,
	}, "\n")

	stats, err := aggregate(strings.NewReader(log))
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("pairs = %d", len(stats))
	}

	btc := stats["BTC/KRW"]
	if btc.trades != 2 || btc.upbitSells != 1 {
		t.Errorf("btc = %+v", btc)
	}
	if btc.volume.String() != "0.3" {
		t.Errorf("btc volume = %s", btc.volume)
	}
	if btc.spreadSum.String() != "0.08" {
		t.Errorf("btc spread sum = %s", btc.spreadSum)
	}

	eth := stats["ETH/KRW"]
	if eth.trades != 1 || eth.volume.String() != "1" {
		t.Errorf("eth = %+v", eth)
	}
}

func TestReportEmpty(t *testing.T) {
	t.Parallel()
	var out strings.Builder
	report(&out, map[string]*pairStats{})
	if !strings.Contains(out.String(), "no executed trades") {
		t.Errorf("output = %q", out.String())
	}
}

func TestReportFormatsRows(t *testing.T) {
	t.Parallel()
	stats, err := aggregate(strings.NewReader(
		`{"msg":"trade executed","pair":"BTC/KRW","direction":"upbit_sell","volume":"0.1","spread":"0.06","expected_profit":"0.056"}`))
	if err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	report(&out, stats)
	got := out.String()
	if !strings.Contains(got, "BTC/KRW") || !strings.Contains(got, "0.100000") {
		t.Errorf("output = %q", got)
	}
}
