// Diagnostic tool for inspecting tile-store rasters
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/robert-malhotra/go-raster/driver/tilestore"
	"github.com/robert-malhotra/go-raster/raster"
)

func main() {
	async := flag.Bool("async", false, "run a progressive full-extent read and print each status transition")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Usage: rasterinfo [-async] <file.rast>")
		os.Exit(1)
	}

	store, err := tilestore.Open(flag.Arg(0))
	if err != nil {
		fmt.Printf("ERROR: failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ds := raster.NewDataset(store)
	fmt.Printf("=== %s ===\n", flag.Arg(0))
	fmt.Printf("Size:      %dx%d\n", ds.Width(), ds.Height())
	fmt.Printf("Bands:     %d\n", ds.BandCount())
	fmt.Printf("Data type: %s\n", ds.DataType())
	fmt.Printf("Tile size: %d\n", store.TileSize())

	if *async {
		if err := progressiveRead(ds); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	}
}

func progressiveRead(ds *raster.Dataset) error {
	buf := make([]float64, ds.Width()*ds.Height()*ds.BandCount())
	req, err := ds.BeginAsyncRead(raster.WindowOf(0, 0, ds.Width(), ds.Height()), buf)
	if err != nil {
		return err
	}
	defer ds.EndAsyncRead(req)

	fmt.Printf("Request:   %s\n", req.ID())
	start := time.Now()
	for {
		status, region := req.GetNextUpdatedRegion(time.Second)
		switch status {
		case raster.StatusPending:
			fmt.Printf("%8s  pending\n", time.Since(start).Round(time.Millisecond))
		case raster.StatusUpdate:
			fmt.Printf("%8s  update (%d,%d %dx%d)\n", time.Since(start).Round(time.Millisecond),
				region.XOff, region.YOff, region.Width, region.Height)
		case raster.StatusComplete:
			fmt.Printf("%8s  complete\n", time.Since(start).Round(time.Millisecond))
			return nil
		case raster.StatusError:
			return req.Err()
		}
	}
}
