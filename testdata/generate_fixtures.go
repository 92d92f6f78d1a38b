//go:build ignore

// This program writes sample zone folders for trying out scadaflat:
//
//	go run testdata/generate_fixtures.go
//	scadaflat convert -i testdata/BGM_testing -o testdata/output_BGM
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klytics/scadaflat/internal/sample"
	"github.com/klytics/scadaflat/internal/scada"
)

func main() {
	zones := map[string][]string{
		"BGM_testing": {"FLOW_RATE", "DUMMY", "PRESSURE_IN", "PRESSURE_OUT"},
		"BGK_testing": {"LEVEL", "PUMP_1_CURRENT", "DUMMY", "PUMP_2_CURRENT"},
	}

	for dir, tags := range zones {
		path := filepath.Join("testdata", dir)
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", path, err)
			os.Exit(1)
		}
		if _, err := sample.Zone(path, 3, tags, scada.MinutesPerDay); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating %s: %v\n", path, err)
			os.Exit(1)
		}
		legacy := sample.Export{Station: "Legacy Station", Date: 45306, Tags: tags, Rows: scada.MinutesPerDay}
		if err := sample.Write(filepath.Join(path, "station_legacy.xls"), legacy); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	fmt.Println("Test fixtures generated successfully.")
}
