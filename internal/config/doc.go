// Package config loads the dashboard configuration.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources, later ones winning:
//
//	1. Default values (Default)
//	2. A YAML file (config.yaml or configs/config.yaml, or an explicit path)
//	3. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern BIKE_<SECTION>_<FIELD>:
//
//	BIKE_SERVER_PORT=8080
//	BIKE_DATASET_PATH=data/all_data.csv
//	BIKE_DATASET_STRICT=true
//	BIKE_LOGGING_LEVEL=debug
//	BIKE_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Example File
//
//	server:
//	  port: 8080
//	dataset:
//	  path: data/all_data.csv
//	dashboard:
//	  raw_row_limit: 200
package config
