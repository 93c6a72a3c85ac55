// Command bench runs a synthetic memoization workload and exposes optional
// pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	zaplog "github.com/IvanBrykalov/memoflight/log/zap"
	"github.com/IvanBrykalov/memoflight/memo"
	pmet "github.com/IvanBrykalov/memoflight/metrics/prom"
	"github.com/IvanBrykalov/memoflight/strategy/evict"
)

func main() {
	// ---- Flags ----
	var (
		strategyName = flag.String("strategy", "simple", "cache strategy: simple | evict")
		minThreshold = flag.Int64("min", 32<<20, "evict: low-water mark (bytes)")
		maxThreshold = flag.Int64("max", 64<<20, "evict: high-water mark (bytes)")

		shards      = flag.Int("shards", 0, "entry-store partitions (0=auto)")
		maxWaiters  = flag.Int("waiters", memo.DefaultMaxWaiters, "blocking-waiter bound per key")
		waiterSleep = flag.Duration("waiter_sleep", memo.DefaultWaiterSleep, "overflow poll interval")
		expiresIn   = flag.Duration("expires", 0, "per-value expiry (0 = none)")

		workers     = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration    = flag.Duration("duration", 10*time.Second, "benchmark duration")
		computeTime = flag.Duration("compute", time.Millisecond, "simulated computation latency")
		valueSize   = flag.Int("value", 256, "computed value size (bytes)")

		keys  = flag.Int("keys", 100_000, "keyspace size")
		zipfS = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed  = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
		debugLog    = flag.Bool("debug", false, "log engine debug events")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := pmet.New(nil, "memoflight", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Engine logger ----
	zl, err := zap.NewProduction()
	if *debugLog {
		zl, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	// ---- Build cache ----
	opt := memo.Options[string, string]{
		Shards:      *shards,
		MaxWaiters:  *maxWaiters,
		WaiterSleep: *waiterSleep,
		Metrics:     metrics,
		Logger:      zaplog.New(zl),
	}
	switch *strategyName {
	case "simple":
		// nil => simple by default
	case "evict":
		opt.Strategy = evict.New[string, string](evict.Options[string]{
			MinThreshold: *minThreshold,
			MaxThreshold: *maxThreshold,
		})
		opt.GCInterval = time.Second
	default:
		log.Fatalf("unknown strategy: %q (use simple or evict)", *strategyName)
	}
	c, err := memo.New[string, string](opt)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	// ---- Snapshot flags for goroutines ----
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	computeVal := *computeTime
	valueVal := *valueSize
	expiresVal := *expiresIn
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var total, computes, errs uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var callOpts []memo.CallOption
	if expiresVal > 0 {
		callOpts = append(callOpts, memo.ExpiresIn(expiresVal))
	}

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			for ctx.Err() == nil {
				k := "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
				atomic.AddUint64(&total, 1)
				_, err := c.GetOrRun(ctx, k, func(cctx context.Context) (string, error) {
					atomic.AddUint64(&computes, 1)
					if computeVal > 0 {
						select {
						case <-time.After(computeVal):
						case <-cctx.Done():
							return "", cctx.Err()
						}
					}
					return string(make([]byte, valueVal)), nil
				}, callOpts...)
				if err != nil && ctx.Err() == nil {
					atomic.AddUint64(&errs, 1)
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	computed := atomic.LoadUint64(&computes)
	hitRate := 0.0
	if ops > 0 {
		hitRate = float64(ops-computed) / float64(ops) * 100
	}

	fmt.Printf("strategy=%s shards=%d workers=%d keys=%d dur=%v seed=%d\n",
		*strategyName, *shards, workersN, *keys, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  computes=%d  errors=%d\n",
		ops, float64(ops)/elapsed.Seconds(), computed, atomic.LoadUint64(&errs))
	fmt.Printf("hit-rate=%.2f%%  Len()=%d\n", hitRate, c.Len())
}
