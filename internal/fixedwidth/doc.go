// Package fixedwidth reads transport (TN) records out of the fixed-width
// regulatory file the surrounding application generates and the operator
// corrects by hand.
//
// A TN line is 276 characters: contracting-party document and name, invoice
// number and date, issuer document and name, recipient document and name,
// plus two pickup/delivery flags. Positions are character based, so lines
// are sliced as runes rather than bytes. Other line types belong to other
// sections of the file and are skipped; TN-prefixed lines that do not fill
// the layout are counted as invalid.
package fixedwidth
