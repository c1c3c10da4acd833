package main

import (
	"bufio"
	"compress/gzip"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/meteotest/quadkeys/pkg/cmd"
	"github.com/meteotest/quadkeys/pkg/config"
	"github.com/meteotest/quadkeys/pkg/coord"
	"github.com/meteotest/quadkeys/pkg/coord/cmp"
	"github.com/meteotest/quadkeys/pkg/coord/gen"
	"github.com/meteotest/quadkeys/pkg/logger"
	"github.com/meteotest/quadkeys/pkg/quadkey"
	tzs3 "github.com/meteotest/quadkeys/pkg/s3"
	"github.com/meteotest/quadkeys/pkg/util"
)

func isHexChar(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}

func isValidHexPrefix(hexPrefix string) bool {
	if len(hexPrefix) != 3 {
		return false
	}
	for _, c := range hexPrefix {
		if !isHexChar(c) {
			return false
		}
	}
	return true
}

// listingPrefixes returns the object prefixes to list. With a hex prefix the
// 256 hash prefixes below it are listed, each as <hash>/<prefix>/.
func listingPrefixes(hexPrefix, prefix string) []string {
	if hexPrefix == "" {
		return []string{prefix}
	}
	result := make([]string, 0, 16*16)
	for i := 0; i < 16*16; i++ {
		result = append(result, fmt.Sprintf("%s%02x/%s/", hexPrefix, i, prefix))
	}
	return result
}

// listObjects lists every prefix on concurrency goroutines and returns all
// tile objects found, sorted in quad key order.
func listObjects(ctx context.Context, lister *tzs3.Lister, prefixes []string, concurrency uint) ([]tzs3.Object, error) {
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	prefixChan := make(chan string, len(prefixes))
	for _, p := range prefixes {
		prefixChan <- p
	}
	close(prefixChan)

	objectsChan := make(chan []tzs3.Object, concurrency)
	var all []tzs3.Object
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for objects := range objectsChan {
			all = append(all, objects...)
		}
	}()

	err := util.Concurrently(concurrency, func() error {
		for prefix := range prefixChan {
			if listCtx.Err() != nil {
				return nil
			}
			err := lister.List(listCtx, prefix, func(objects []tzs3.Object) {
				objectsChan <- objects
			})
			// only the failure that cancelled the others is reported
			if err != nil && listCtx.Err() == nil {
				cancel()
				return fmt.Errorf("listing %s: %w", prefix, err)
			}
		}
		return nil
	})
	close(objectsChan)
	wg.Wait()

	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Coord.LessQuadKey(all[j].Coord) })
	return all, nil
}

// sortZYX reorders objects by zoom, then row, then column. Objects come out
// of listObjects in quad key order.
func sortZYX(objects []tzs3.Object) {
	sort.SliceStable(objects, func(i, j int) bool { return objects[i].Coord.LessZYX(objects[j].Coord) })
}

func writeIndex(w io.Writer, objects []tzs3.Object) error {
	buf := bufio.NewWriter(w)
	for _, obj := range objects {
		key, err := quadkey.FromCoord(obj.Coord)
		if err != nil {
			return err
		}
		fmt.Fprintf(buf, "%s %s\n", key, obj.Key)
	}
	return buf.Flush()
}

// writeMissing writes the quad key of every tile at zoom below root that is
// not among objects, as it is found, and returns how many were written.
func writeMissing(w io.Writer, objects []tzs3.Object, root coord.Coord, zoom uint) (int, error) {
	coords := make([]coord.Coord, len(objects))
	for i, obj := range objects {
		coords[i] = obj.Coord
	}

	buf := bufio.NewWriter(w)
	var count int
	err := cmp.EachMissingTile(gen.NewDescendants(root, zoom), gen.NewSlice(coords), func(c coord.Coord) error {
		key, err := quadkey.FromCoord(c)
		if err != nil {
			return err
		}
		buf.WriteString(key)
		if err := buf.WriteByte('\n'); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}
	return count, buf.Flush()
}

func main() {
	var configPath, envFile, bucket, prefix, region, hexPrefix, rootKey, order string
	var concurrency uint
	var missingZoom int
	var compressOutput bool

	flag.StringVar(&configPath, "config", "", "yaml config file")
	flag.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the QK_* environment is read")
	flag.StringVar(&bucket, "bucket", "", "s3 bucket to enumerate tiles, overrides s3.bucket")
	flag.StringVar(&prefix, "prefix", "", "prefix below the hash, overrides s3.prefix")
	flag.StringVar(&region, "region", "", "region, overrides s3.region")
	flag.StringVar(&hexPrefix, "hex-prefix", "", "hex prefix for job, must be 3 lowercase hexadecimal characters. Without it the prefix is listed directly")
	flag.UintVar(&concurrency, "concurrency", 0, "number of goroutines listing the bucket, overrides s3.concurrency")
	flag.IntVar(&missingZoom, "missing-zoom", -1, "If set, print the quad keys at this zoom below -root that were not found")
	flag.StringVar(&rootKey, "root", "", "quad key of the tile to check for missing descendants (default the root tile)")
	flag.StringVar(&order, "sort", "quadkey", "order of the index: quadkey, or zyx for zoom then row then column")
	flag.BoolVar(&compressOutput, "compress-output", false, "If set, compress the output with gzip.")

	flag.Parse()

	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		cmd.DieWithUsage("Invalid config: %s", err)
	}
	if bucket != "" {
		cfg.S3.Bucket = bucket
	}
	if prefix != "" {
		cfg.S3.Prefix = prefix
	}
	if region != "" {
		cfg.S3.Region = region
	}
	if concurrency != 0 {
		cfg.S3.Concurrency = concurrency
	}
	if cfg.S3.Bucket == "" {
		cmd.DieWithUsage("A bucket is required")
	}
	if hexPrefix != "" && !isValidHexPrefix(hexPrefix) {
		cmd.DieWithUsage("Invalid hex prefix: %#v", hexPrefix)
	}

	if order != "quadkey" && order != "zyx" {
		cmd.DieWithUsage("Invalid -sort %#v", order)
	}

	root, err := quadkey.ToTile(rootKey)
	if err != nil {
		cmd.DieWithUsage("Invalid root: %s", err)
	}
	// descendants are enumerated through a uint64 counter, 4^31 at most
	maxMissingZoom := int(root.Z) + 31
	if maxMissingZoom > coord.MaxZoom {
		maxMissingZoom = coord.MaxZoom
	}
	if missingZoom >= 0 && (missingZoom < int(root.Z) || missingZoom > maxMissingZoom) {
		cmd.DieWithUsage("-missing-zoom must be between %d and %d", root.Z, maxMissingZoom)
	}

	log := logger.Build(logger.Config{Level: cfg.Log.Level, Console: cfg.Log.Console, Component: "qk-s3-index"}, nil)

	sess := session.Must(session.NewSession(&aws.Config{
		Region:     aws.String(cfg.S3.Region),
		MaxRetries: aws.Int(cfg.S3.MaxRetries),
	}))
	lister := tzs3.NewLister(s3.New(sess), cfg.S3.Bucket)
	lister.OnSkip = func(key string, err error) {
		log.Debug().Str("key", key).Err(err).Msg("not a tile object")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prefixes := listingPrefixes(hexPrefix, cfg.S3.Prefix)
	log.Info().Str("bucket", cfg.S3.Bucket).Int("prefixes", len(prefixes)).Uint("concurrency", cfg.S3.Concurrency).Msg("listing")
	objects, err := listObjects(ctx, lister, prefixes, cfg.S3.Concurrency)
	if err != nil {
		log.Fatal().Err(err).Msg("listing failed")
	}
	log.Info().Int("objects", len(objects)).Msg("listed")

	var output io.WriteCloser = os.Stdout
	if compressOutput {
		output = gzip.NewWriter(output)
	}
	if missingZoom >= 0 {
		var missing int
		missing, err = writeMissing(output, objects, root, uint(missingZoom))
		log.Info().Int("missing", missing).Str("root", rootKey).Int("zoom", missingZoom).Msg("compared")
	} else {
		if order == "zyx" {
			sortZYX(objects)
		}
		err = writeIndex(output, objects)
	}
	if compressOutput && err == nil {
		err = output.Close()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("writing output")
	}
}
