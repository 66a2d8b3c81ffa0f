package service

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
)

// Node is what every fuelnet role exposes to the service.
type Node interface {
	GetStats() map[string]string
}

// Reporter is implemented by nodes that render a text report, such as the
// admin's consolidated report.
type Reporter interface {
	GenerateConsolidatedReport() string
}

// LedgerStats is implemented by nodes that own a ledger.
type LedgerStats interface {
	Stats() string
	VerifyIntegrity() bool
}

// Service ...
type Service struct {
	sync.Mutex

	bindAddress string
	node        Node
	mux         *http.ServeMux
	server      *http.Server
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, n Node, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		node:        n,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

// registerHandlers registers /stats for every node, plus /report and /ledger
// when the node supports them. Each process runs several nodes in network
// mode, so handlers go on a private mux rather than the DefaultServeMux.
func (s *Service) registerHandlers() {
	s.logger.Debug("Registering API handlers")
	s.mux.HandleFunc("/stats", s.makeHandler(s.GetStats))
	if _, ok := s.node.(Reporter); ok {
		s.mux.HandleFunc("/report", s.makeHandler(s.GetReport))
	}
	if _, ok := s.node.(LedgerStats); ok {
		s.mux.HandleFunc("/ledger", s.makeHandler(s.GetLedger))
	}
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the service mux.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving API")

	s.Lock()
	s.server = &http.Server{Addr: s.bindAddress, Handler: s.mux}
	srv := s.server
	s.Unlock()

	err := srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		s.logger.Error(err)
	}
}

// Close stops a running Serve.
func (s *Service) Close() error {
	s.Lock()
	srv := s.server
	s.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Close()
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := s.node.GetStats()

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(stats)
}

// GetReport ...
func (s *Service) GetReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	w.Write([]byte(s.node.(Reporter).GenerateConsolidatedReport()))
}

// GetLedger returns the ledger stats and the result of an integrity check.
func (s *Service) GetLedger(w http.ResponseWriter, r *http.Request) {
	l := s.node.(LedgerStats)

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(map[string]interface{}{
		"stats":     l.Stats(),
		"integrity": l.VerifyIntegrity(),
	})
}
