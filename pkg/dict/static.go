package dict

import (
	"context"
	"strings"
)

var assetStatuses = []string{
	"Available(p)", "Available(g)", "Assigned(p)", "Assigned(g)", "Repair/Faulty", "Discard",
}

var indianStates = []string{
	"Andhra Pradesh", "Arunachal Pradesh", "Assam", "Bihar", "Chhattisgarh",
	"Goa", "Gujarat", "Haryana", "Himachal Pradesh", "Jharkhand",
	"Karnataka", "Kerala", "Madhya Pradesh", "Maharashtra", "Manipur",
	"Meghalaya", "Mizoram", "Nagaland", "Odisha", "Punjab",
	"Rajasthan", "Sikkim", "Tamil Nadu", "Telangana", "Tripura",
	"Uttar Pradesh", "Uttarakhand", "West Bengal",
	"Andaman and Nicobar Islands", "Chandigarh", "Dadra and Nagar Haveli and Daman and Diu",
	"Delhi", "Jammu and Kashmir", "Ladakh", "Lakshadweep", "Puducherry",
}

// StaticResolver serves the built-in option lists. Codes equal labels.
type StaticResolver struct {
	lists map[string][]string
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{lists: map[string][]string{
		CodeAssetStatus: assetStatuses,
		CodeIndianState: indianStates,
	}}
}

func (s *StaticResolver) ResolveValueLabel(_ context.Context, dictCode string, code string) (string, bool, error) {
	for _, v := range s.lists[dictCode] {
		if strings.EqualFold(v, code) {
			return v, true, nil
		}
	}
	return "", false, nil
}

func (s *StaticResolver) ListOptions(_ context.Context, dictCode string, keyword string, limit int) ([]Option, error) {
	keyword = strings.ToLower(keyword)
	out := make([]Option, 0, len(s.lists[dictCode]))
	for _, v := range s.lists[dictCode] {
		if keyword != "" && !strings.Contains(strings.ToLower(v), keyword) {
			continue
		}
		out = append(out, Option{Code: v, Label: v})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
