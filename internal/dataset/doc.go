// Package dataset loads the bike rental CSV and owns the resulting records.
//
// The CSV is read once with gota into an all-string dataframe and then
// converted row by row, so one malformed row is reported and skipped
// instead of aborting the whole load. A Dataset is immutable; every
// accessor hands out copies.
package dataset
