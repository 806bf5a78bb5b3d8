package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/sealedsum/sealedsum/accumulator"
	"github.com/sealedsum/sealedsum/audit"
	"github.com/sealedsum/sealedsum/hebackend"
	"github.com/sealedsum/sealedsum/hebackend/elgamal"
	"github.com/sealedsum/sealedsum/hebackend/paillier"
	"github.com/sealedsum/sealedsum/log"
	"github.com/sealedsum/sealedsum/service"
)

func main() {
	dataDir := flag.String("dir", "./accumulatord-data", "data directory")
	dbType := flag.String("dbtype", db.TypePebble, "key-value database type")
	host := flag.String("host", "0.0.0.0", "API host")
	port := flag.Int("port", 9090, "API port")
	logLevel := flag.String("loglevel", "info", "log level (debug, info, warn, error)")
	backendName := flag.String("backend", elgamal.Scheme, fmt.Sprintf("homomorphic backend (%s, %s)", elgamal.Scheme, paillier.Scheme))
	auditBuffer := flag.Int("auditbuffer", audit.DefaultBuffer, "audit event buffer size")
	flag.Parse()

	log.Init(*logLevel, "stdout", nil)

	kv, err := metadb.New(*dbType, *dataDir)
	if err != nil {
		log.Fatalf("could not open database: %v", err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Errorw("could not close database", "error", err)
		}
	}()

	var backend hebackend.Backend
	switch *backendName {
	case elgamal.Scheme:
		backend, err = elgamal.New(kv)
	case paillier.Scheme:
		backend, err = paillier.New(kv)
	default:
		log.Fatalf("unknown backend %q", *backendName)
	}
	if err != nil {
		log.Fatalf("could not open %s backend: %v", *backendName, err)
	}

	sink := audit.NewLogSink(*auditBuffer)
	defer sink.Close()

	store := accumulator.NewStore(kv, backend)
	protocol := fmt.Sprintf("sealedsum/%s/v1", backend.Scheme())
	acc := accumulator.New(store, backend, sink, protocol)
	log.Infow("accumulator ready", "protocol", protocol, "scheme", backend.Scheme(), "dir", *dataDir)

	apiService := service.NewAPI(acc, *host, *port)
	if err := apiService.Start(context.Background()); err != nil {
		log.Fatalf("could not start API service: %v", err)
	}
	defer apiService.Stop()

	// Wait for SIGTERM or SIGINT
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	log.Infow("shutting down", "signal", sig.String())
}
