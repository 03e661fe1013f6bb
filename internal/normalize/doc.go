// Package normalize turns raw party names and document strings into the
// canonical keys the learning memory indexes on.
//
// Name keys are diacritic-stripped, uppercased, and collapsed to single
// spaces; placeholder values and keys shorter than five characters are
// rejected so junk names never become lookup keys. Document normalization
// keeps digits only; checksum validation lives in internal/identity.
package normalize
