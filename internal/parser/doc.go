// Package parser turns raw LLM completions into transaction candidates.
//
// Parse tries three strategies in order and stops at the first that yields
// at least one transaction:
//
//  1. Repair the completion as JSON and read its "transactions" array.
//  2. Extract amounts from the user's original text with Vietnamese
//     shorthand rules ("30k", "1,5 triệu").
//  3. Return an empty result whose metadata records the failure.
//
// Parse never returns an error.
package parser
