package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fat32fs/fat32"
	"github.com/spf13/afero"
)

// main mounts an image, walks its tree and demonstrates a write.
func main() {
	argsWithoutProg := os.Args[1:]
	if len(argsWithoutProg) <= 0 {
		fmt.Println("Please provide an image filename.")
		os.Exit(1)
	}

	imgFile, err := os.OpenFile(argsWithoutProg[0], os.O_RDWR, 0)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	defer imgFile.Close()

	dev, err := fat32.NewSeekerDevice(imgFile, 512)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	fsys, err := fat32.NewFromDeviceConfig(dev, fat32.Config{Logger: logger})
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	vol := fsys.Volume()
	fmt.Printf("Opened volume '%v' with %v free clusters\n\n", vol.Label(), vol.FreeClusters())

	err = afero.Walk(fsys, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			fmt.Println(err)
			return err
		}
		fmt.Println(path, info.IsDir(), info.Size(), info.ModTime())
		return nil
	})
	if err != nil {
		os.Exit(1)
	}

	file, err := fsys.OpenFile("/hello.txt", os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		fmt.Println("could not create the file", err)
		os.Exit(1)
	}
	defer file.Close()

	if _, err := file.WriteString("Hello from a fresh mount!\n"); err != nil {
		fmt.Println("could not write the file", err)
		os.Exit(1)
	}

	stat, err := file.Stat()
	if err != nil {
		fmt.Println("could not stat the file", err)
		os.Exit(1)
	}
	buffer := make([]byte, stat.Size())
	if _, err := file.ReadAt(buffer, 0); err != nil {
		fmt.Println("could not read the file", err)
		os.Exit(1)
	}
	fmt.Println("\nContent of " + stat.Name() + ":\n\n" + string(buffer))
}
