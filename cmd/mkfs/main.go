package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fat32fs/fat32"
)

// main creates an image file and stamps a fresh volume onto it.
func main() {
	sizeMiB := flag.Uint("size", 64, "image size in MiB")
	label := flag.String("label", "", "volume label (max 11 characters)")
	spc := flag.Uint("spc", 0, "sectors per cluster, 0 picks a default")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Please provide an image filename.")
		os.Exit(1)
	}

	const sectorSize = 512
	sectors := uint32(*sizeMiB * 1024 * 1024 / sectorSize)
	dev := fat32.NewMemDevice(sectorSize, sectors)

	err := fat32.Format(dev, fat32.FormatConfig{
		Label:             *label,
		SectorsPerCluster: uint8(*spc),
	})
	if err != nil {
		fmt.Println("format failed:", err)
		os.Exit(1)
	}

	// A quick mount proves the new volume parses.
	vol, err := fat32.Mount(dev)
	if err != nil {
		fmt.Println("verification mount failed:", err)
		os.Exit(1)
	}

	if err := os.WriteFile(flag.Arg(0), dev.Bytes(), 0o644); err != nil {
		fmt.Println("could not write the image:", err)
		os.Exit(1)
	}
	fmt.Printf("Created '%v': %v sectors, %v free clusters\n",
		flag.Arg(0), sectors, vol.FreeClusters())
}
