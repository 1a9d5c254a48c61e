// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Command mpq lists and extracts files from MPQ archives.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/sokr/mpqread"
)

const version = "mpqread 0.1.0"

var (
	list      = flag.Bool("l", false, "list the archive's (listfile) contents")
	listLong  = flag.Bool("list", false, "alias of -l")
	extract   = flag.String("x", "", "extract FILE from the archive")
	extractL  = flag.String("extract", "", "alias of -x")
	toStdout  = flag.Bool("o", false, "with -x, write extracted bytes to stdout")
	toStdoutL = flag.Bool("to-stdout", false, "alias of -o")
	showVer   = flag.Bool("v", false, "print version and exit")
	showVerL  = flag.Bool("version", false, "alias of -v")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("mpq: ")
	flag.Usage = usage
	flag.Parse()

	if *showVer || *showVerL {
		fmt.Println(version)
		return
	}

	doList := *list || *listLong
	extractName := firstNonEmpty(*extract, *extractL)
	stdout := *toStdout || *toStdoutL

	args := flag.Args()
	if len(args) != 1 {
		usage()
		os.Exit(1)
	}
	archivePath := args[0]

	archive, err := mpq.Open(archivePath)
	if err != nil {
		log.Fatal(err)
	}
	defer archive.Close()

	switch {
	case doList:
		if err := runList(archive); err != nil {
			log.Fatal(err)
		}
	case extractName != "":
		if err := runExtract(archive, extractName, stdout); err != nil {
			log.Fatal(err)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func runList(archive *mpq.Archive) error {
	f, err := archive.OpenFile("(listfile)")
	if err != nil {
		if errors.Is(err, mpq.ErrNotFound) {
			return fmt.Errorf("archive carries no (listfile)")
		}
		return err
	}

	buf := make([]byte, f.Size())
	n, err := f.Read(archive, buf)
	if err != nil {
		return err
	}

	os.Stdout.Write(buf[:n])
	return nil
}

func runExtract(archive *mpq.Archive, name string, stdout bool) error {
	f, err := archive.OpenFile(name)
	if err != nil {
		return err
	}

	if stdout {
		buf := make([]byte, f.Size())
		n, err := f.Read(archive, buf)
		if err != nil {
			return err
		}
		os.Stdout.Write(buf[:n])
		return nil
	}

	destPath := strings.ReplaceAll(name, `\`, string(os.PathSeparator))
	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	n, err := f.Extract(archive, destPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "extracted %s (%d bytes)\n", destPath, n)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: mpq [options] ARCHIVE\n\n")
	fmt.Fprintf(os.Stderr, "options:\n")
	flag.PrintDefaults()
}
