// Package exporter writes the filtered dashboard view to files and HTTP
// responses.
//
// CSVWriter is the low level writer. It accepts any io.Writer and can prefix
// the output with a UTF-8 BOM so spreadsheet programs detect the encoding.
//
// DailyExporter turns daily aggregates into the CSV report served by the
// export endpoint and written by the rentalreport command.
//
// WorkbookExporter builds an XLSX workbook with Daily, Records and Summary
// sheets from a snapshot.
//
// Example usage:
//
//	daily := exporter.NewDailyExporter(logger)
//	err := daily.ExportDailyCSV("reports/"+exporter.ReportFileName(rng, "csv"), snap.Daily)
//
//	book := exporter.NewWorkbookExporter(logger)
//	err = book.Write(w, snap)
package exporter
