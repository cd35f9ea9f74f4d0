// Package biz implements the length-of-stay insight use cases: evidence
// retrieval, grounded question answering with a rule-based fallback, notes
// and cohort analytics.
package biz
