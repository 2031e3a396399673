package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Built-in tool ids.
const (
	RunwayCalculator = "runway_calculator"
	FundingStage     = "funding_stage"
	EligibilityCheck = "eligibility_check"
)

// Builtins returns the funding tools available to every executor.
func Builtins() []Tool {
	return []Tool{
		{
			ID:          RunwayCalculator,
			Description: "Months of runway from cash on hand and monthly burn",
			Params: map[string]string{
				"cash":            "cash on hand",
				"monthly_burn":    "monthly operating expenses",
				"monthly_revenue": "optional monthly revenue",
			},
			ProfileKeys: map[string]string{"runway_months": "runway_months"},
			Run:         runway,
		},
		{
			ID:          FundingStage,
			Description: "Estimate the funding stage from revenue and product status",
			Params: map[string]string{
				"annual_revenue": "annual recurring revenue",
				"has_product":    "whether a product is live",
				"team_size":      "optional number of full-time people",
			},
			ProfileKeys: map[string]string{"stage": "stage"},
			Run:         fundingStage,
		},
		{
			ID:          EligibilityCheck,
			Description: "Check eligibility for a funding program",
			Params: map[string]string{
				"program":        "accelerator, innovation_grant or venture_debt",
				"stage":          "pre-seed, seed, series_a or later",
				"sector":         "company sector",
				"annual_revenue": "annual recurring revenue",
			},
			Run: eligibility,
		},
	}
}

func runway(_ context.Context, p map[string]any) (map[string]any, error) {
	cash, err := number(p, "cash", true)
	if err != nil {
		return nil, err
	}
	burn, err := number(p, "monthly_burn", true)
	if err != nil {
		return nil, err
	}
	revenue, err := number(p, "monthly_revenue", false)
	if err != nil {
		return nil, err
	}
	if cash < 0 || burn < 0 || revenue < 0 {
		return nil, fmt.Errorf("amounts must not be negative")
	}

	net := burn - revenue
	if net <= 0 {
		return map[string]any{
			"net_burn":      net,
			"runway_months": -1.0,
			"profitable":    true,
		}, nil
	}
	return map[string]any{
		"net_burn":      net,
		"runway_months": math.Round(cash/net*10) / 10,
		"profitable":    false,
	}, nil
}

type stageBand struct {
	stage        string
	maxARR       float64
	typicalRaise string
}

var stageBands = []stageBand{
	{"seed", 1_000_000, "$1M-$3M"},
	{"series_a", 5_000_000, "$5M-$15M"},
	{"series_b", 20_000_000, "$15M-$50M"},
	{"growth", math.Inf(1), "$50M+"},
}

func fundingStage(_ context.Context, p map[string]any) (map[string]any, error) {
	arr, err := number(p, "annual_revenue", false)
	if err != nil {
		return nil, err
	}
	hasProduct, err := boolean(p, "has_product")
	if err != nil {
		return nil, err
	}

	if !hasProduct || arr <= 0 {
		return map[string]any{"stage": "pre-seed", "typical_raise": "$250K-$1M"}, nil
	}
	for _, b := range stageBands {
		if arr < b.maxARR {
			return map[string]any{"stage": b.stage, "typical_raise": b.typicalRaise}, nil
		}
	}
	// Unreachable: the last band is unbounded.
	return nil, fmt.Errorf("no stage for revenue %v", arr)
}

var grantSectors = map[string]bool{
	"fintech": true, "health": true, "climate": true, "education": true, "deeptech": true,
}

func eligibility(_ context.Context, p map[string]any) (map[string]any, error) {
	program := strings.ToLower(str(p, "program"))
	stage := strings.ToLower(str(p, "stage"))
	sector := strings.ToLower(str(p, "sector"))
	arr, err := number(p, "annual_revenue", false)
	if err != nil {
		return nil, err
	}

	var reasons []string
	switch program {
	case "accelerator":
		if stage != "pre-seed" && stage != "seed" {
			reasons = append(reasons, "accelerators accept pre-seed and seed companies")
		}
	case "innovation_grant":
		if !grantSectors[sector] {
			reasons = append(reasons, fmt.Sprintf("sector %q is not covered by the grant", sector))
		}
	case "venture_debt":
		if arr < 1_000_000 {
			reasons = append(reasons, "venture debt requires at least $1M annual revenue")
		}
	default:
		return nil, fmt.Errorf("unknown program %q", program)
	}

	return map[string]any{
		"program":  program,
		"eligible": len(reasons) == 0,
		"reasons":  reasons,
	}, nil
}

func number(p map[string]any, key string, required bool) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		if required {
			return 0, fmt.Errorf("missing parameter %q", key)
		}
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("parameter %q: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("parameter %q must be a number, got %T", key, v)
	}
}

func boolean(p map[string]any, key string) (bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return false, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(b)
	default:
		return false, fmt.Errorf("parameter %q must be a boolean, got %T", key, v)
	}
}

func str(p map[string]any, key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}
