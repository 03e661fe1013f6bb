// Package identity validates Brazilian legal-entity and individual tax
// identifiers (CNPJ and CPF) with the official modulo-11 checksum
// algorithms. Inputs are digits-only strings; use normalize.DigitsOnly to
// clean raw values first.
package identity
