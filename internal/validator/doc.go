// Package validator flags extracted transactions that need human review.
//
// Every candidate goes through five independent checks: an absolute amount
// threshold, a minimum confidence, a spending-pattern comparison against the
// user's recent history in the same category, suspicious description text,
// and basic business rules. A failing check never blocks the others.
package validator
