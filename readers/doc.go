// Package readers turns uploaded files into ingestion units.
//
// CSV files become one row unit per record, keyed by the header row. Plain
// text becomes a single text unit. JSON files carry a list of pre-extracted
// units, which is how PDF pages, DOCX paragraphs and tables arrive from
// external extractors. Image files become image units.
package readers
