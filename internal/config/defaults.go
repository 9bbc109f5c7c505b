package config

import "time"

// GridSatDrop lists the GridSat-B1 variables that are not needed
// downstream: calibration coefficients, secondary channels, satellite ids
// and sparse-index fields. Not every file version carries all of them.
var GridSatDrop = List{
	"calslp_irwin", "calslp_irwvp", "caloff_irwvp",
	"vis_rad_slope", "vis_dc_slope", "vis_dc_offset",
	"irwin_2", "irwin_3", "irwvp", "vschn", "vschn_2",
	"satid_ir", "satid_wv", "satid_vs", "satid_ir3",
	"sparse2ir", "sparse2wv", "sparse2vs",
	"irwin_vza_adj",
}

// Geost returns the defaults for GridSat-B1 brightness temperature.
func Geost() Config {
	return Config{
		Domain:            ITCZ,
		Year:              2024,
		DestinationFolder: "/data/trade_pc/ITCZ/2024/geost",
		SourceURLTemplate: "https://www.ncei.noaa.gov/data/geostationary-ir-channel-brightness-temperature-gridsat-b1/access/{year}/",
		FileList:          "file_list.txt",
		FetchTimeout:      Duration(10 * time.Minute),
		DropVariables:     GridSatDrop,
		PackVariables:     List{"irwin_cdr"},
	}
}

// IMERG returns the defaults for GPM IMERG half-hourly precipitation.
// Precipitation is stored as read; -pack precipitation opts into int16
// packing.
func IMERG() Config {
	return Config{
		Domain:            ITCZ,
		Year:              2024,
		DestinationFolder: "/data/trade_pc/ITCZ/2024/imerg",
		SourceURLTemplate: "https://cmr.earthdata.nasa.gov",
		FetchTimeout:      Duration(10 * time.Minute),
	}
}
