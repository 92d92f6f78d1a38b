// Package scada reshapes fixed-layout SCADA spreadsheet exports into a long
// table of (zone, station, date, time interval, tag, value) rows and writes
// them out in batches, one workbook per batch.
//
// The pipeline is strictly one-way: zone folder, file, worksheet, extracted
// fields, accumulated rows, batch workbook. Each batch owns its own Table.
package scada
