// Package prompt 提供查询分类与提示组装的单元测试
package prompt

import "testing"

func TestClassify(t *testing.T) {
	c := NewClassifier(nil, nil)

	tests := []struct {
		name  string
		query string
		want  QueryType
	}{
		{name: "sql keyword", query: "SELECT USUBJID FROM dm WHERE AGE > 65", want: QueryTypeCode},
		{name: "sql keyword lowercase", query: "join ae with dm on usubjid", want: QueryTypeCode},
		{name: "code phrase", query: "create a dbt model for the AE domain", want: QueryTypeCode},
		{name: "code phrase generate", query: "generate a mapping for DM", want: QueryTypeCode},
		{name: "explanation phrase", query: "what is the ADSL dataset", want: QueryTypeExplanation},
		{name: "explanation phrase explain", query: "explain the AE domain", want: QueryTypeExplanation},
		{name: "indicator scoring code", query: "dbt transformation mapping for demographics", want: QueryTypeCode},
		{name: "indicator scoring explanation", query: "compare SDTM and ADaM datasets", want: QueryTypeExplanation},
		// 平局（含双零）归为解释类
		{name: "tie defaults to explanation", query: "demographics domain for oncology trials", want: QueryTypeExplanation},
		{name: "empty query", query: "", want: QueryTypeExplanation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.query); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestClassifyCustomIndicators(t *testing.T) {
	c := NewClassifier([]string{"pipeline"}, []string{"meaning", "overview"})

	if got := c.Classify("pipeline for dm domain"); got != QueryTypeCode {
		t.Errorf("Classify() = %q, want %q", got, QueryTypeCode)
	}
	if got := c.Classify("meaning overview of the dm domain"); got != QueryTypeExplanation {
		t.Errorf("Classify() = %q, want %q", got, QueryTypeExplanation)
	}
}
