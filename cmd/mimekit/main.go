// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-mimekit/mimekit"
	"github.com/go-mimekit/mimekit/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a mimekit.yaml configuration file")
	database := flag.String("database", "", "path to the mime-info XML database")
	rebuild := flag.Bool("rebuild", false, "ignore the binary cache and rebuild from the XML database")
	flag.Parse()

	opts := []config.Option{config.WithRebuild(*rebuild)}
	if *database != "" {
		opts = append(opts, config.WithDatabase(*database))
	}

	var (
		cfg config.Config
		err error
	)

	if *configPath != "" {
		cfg, err = config.Load(*configPath, opts...)
	} else {
		cfg, err = config.New(opts...)
	}

	if err != nil {
		log.Fatalf("loading configuration: %s", err)
	}

	detector, err := mimekit.New(mimekit.WithConfig(cfg))
	if err != nil {
		log.Fatalf("building repository: %s", err)
	}

	for _, path := range flag.Args() {
		guess, err := identify(detector, path)
		if err != nil {
			log.Printf("identifying %q: %s", path, err)
			continue
		}

		if guess == nil {
			fmt.Printf("%s: %s\n", path, detector.DefaultBinary())
			continue
		}

		fmt.Printf("%s: %s\n", path, guess.Name)
	}
}

func identify(detector *mimekit.Detector, path string) (*mimekit.MimeType, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	adviseSequentialRead(f, detector.MaxTestBytes())

	return detector.DetectStream(path, f)
}
