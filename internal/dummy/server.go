package dummy

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"go.uber.org/zap"

	"gatebench/internal/gateway"
)

type ServerConfig struct {
	Port int

	// FailRate is the share of uploads answered with an error body instead of a CID.
	FailRate float64
	// Latency is added to every upload before it is answered.
	Latency time.Duration

	Log *zap.Logger
}

// Handler serves a minimal gateway: POST /upload returns the CIDv1 (raw, sha2-256) of the
// uploaded file and GET /gw/ipfs/<probe cid> returns the probe text.
func Handler(cfg ServerConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()

	// 1. Uploads
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing form file", http.StatusBadRequest)
			return
		}
		defer f.Close()

		h := sha256.New()
		n, err := io.Copy(h, f)
		if err != nil {
			http.Error(w, "read failed", http.StatusInternalServerError)
			return
		}

		if cfg.Latency > 0 {
			time.Sleep(cfg.Latency)
		}
		if cfg.FailRate > 0 && rand.Float64() < cfg.FailRate {
			log.Debug("injected failure", zap.String("file", hdr.Filename))
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("error: failed to add file"))
			return
		}

		c, err := blockCID(h.Sum(nil))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Debug("stored upload", zap.String("file", hdr.Filename), zap.Int64("bytes", n), zap.Stringer("cid", c))
		w.Write([]byte(c.String() + "\n"))
	})

	// 2. Readiness content
	mux.HandleFunc("/gw/ipfs/", func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.URL.Path, "/gw/ipfs/")
		c, err := cid.Decode(raw)
		if err != nil {
			http.Error(w, "invalid cid", http.StatusBadRequest)
			return
		}
		if c.String() != gateway.ProbeCID {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(gateway.ProbeText + "\n"))
	})

	return mux
}

// blockCID wraps a sha2-256 digest as a CIDv1 for a raw block; its string form starts with "baf".
func blockCID(digest []byte) (cid.Cid, error) {
	hash, err := mh.Encode(digest, mh.SHA2_256)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, hash), nil
}

// Start listens on cfg.Port and serves in the background. It returns the server so callers
// can shut it down.
func Start(cfg ServerConfig) (*http.Server, error) {
	addr := fmt.Sprintf(":%d", cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	fmt.Printf("👻 Dummy Gateway running on http://localhost%s\n", addr)
	fmt.Println("   Endpoints: POST /upload, GET /gw/ipfs/" + gateway.ProbeCID)

	server := &http.Server{
		Handler: Handler(cfg),
	}

	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Server failed: %v\n", err)
		}
	}()
	return server, nil
}
