package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/korniloval/fierix/pkg/descriptor"
	"github.com/korniloval/fierix/pkg/rule"
	"github.com/korniloval/fierix/pkg/scanner"
	"github.com/korniloval/fierix/pkg/types"
)

// Version is the server protocol version
const Version = "1.0.0"

// Server answers instrumentation queries over NDJSON, one request per line.
// Rule edits apply to every later request.
type Server struct {
	configuration *rule.Configuration
	scanner       *scanner.Scanner
	encoder       *json.Encoder
	decoder       *json.Decoder
}

// NewServer creates a new streaming server
func NewServer(sc *scanner.Scanner, configuration *rule.Configuration, in io.Reader, out io.Writer) *Server {
	return &Server{
		configuration: configuration,
		scanner:       sc,
		encoder:       json.NewEncoder(out),
		decoder:       json.NewDecoder(bufio.NewReader(in)),
	}
}

// Run starts the server main loop
func (s *Server) Run(ctx context.Context) error {
	// Send ready signal
	s.sendReady()

	// Use buffered channels for incoming requests
	reqChan := make(chan Request, 1)
	errChan := make(chan error, 1)

	go func() {
		for {
			var req Request
			if err := s.decoder.Decode(&req); err != nil {
				errChan <- err
				return
			}
			select {
			case reqChan <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Process requests until stdin closes or context cancels
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			// Drain any pending requests before handling EOF
			for {
				select {
				case req := <-reqChan:
					if s.processRequest(req) {
						return nil
					}
				default:
					if err == io.EOF {
						return nil
					}
					s.sendError("decode", err.Error())
					return nil
				}
			}
		case req := <-reqChan:
			if s.processRequest(req) {
				return nil
			}
		}
	}
}

// processRequest handles a single request and returns true if the server should exit
func (s *Server) processRequest(req Request) bool {
	var (
		data any
		err  error
	)
	switch req.Type {
	case "match":
		var p MatchPayload
		if err = json.Unmarshal(req.Payload, &p); err == nil {
			data, err = s.match(p)
		}
	case "match_batch":
		var p MatchBatchPayload
		if err = json.Unmarshal(req.Payload, &p); err == nil {
			data, err = s.matchBatch(p.Items)
		}
	case "include", "exclude", "remove":
		var p RulesPayload
		if err = json.Unmarshal(req.Payload, &p); err == nil {
			data, err = s.editRules(req.Type, p.Rules)
		}
	case "scan_class":
		var p ScanClassPayload
		if err = json.Unmarshal(req.Payload, &p); err == nil {
			data, err = s.scanClass(p)
		}
	case "close":
		return true
	default:
		s.sendError("unknown", "unknown request type: "+req.Type)
		return false
	}

	if err != nil {
		s.sendError(req.Type, err.Error())
		return false
	}
	s.send(req.Type, data)
	return false
}

func (s *Server) match(p MatchPayload) (*MatchData, error) {
	params := p.Parameters
	if p.Descriptor != "" {
		decoded, _, err := descriptor.DecodeMethodQualified(p.Descriptor)
		if err != nil {
			return nil, err
		}
		params = decoded
	}

	mc := selectRule(s.configuration.Snapshot(), p.Class, p.Method, params)
	if mc == nil {
		return &MatchData{}, nil
	}

	result := &MatchData{Instrumented: true}
	result.Rule = mc.String()
	result.SaveReturnValue = mc.SaveReturnValue()
	for i, param := range mc.Parameters() {
		if param.Enabled {
			result.CaptureParameters = append(result.CaptureParameters, i)
		}
	}
	return result, nil
}

// selectRule returns the first including config matching the method, or nil
// when none does or an excluding config matches. Both lists come from the
// same snapshot.
func selectRule(snap *rule.Snapshot, className, methodName string, params []string) *types.MethodConfig {
	for _, mc := range snap.Excluding {
		if mc.Matches(className, methodName, params) {
			return nil
		}
	}
	for _, mc := range snap.Including {
		if mc.Matches(className, methodName, params) {
			return mc
		}
	}
	return nil
}

func (s *Server) matchBatch(items []MatchPayload) ([]*MatchData, error) {
	results := make([]*MatchData, 0, len(items))
	for i, item := range items {
		r, err := s.match(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		results = append(results, r)
	}
	return results, nil
}

func (s *Server) editRules(op string, texts []string) (*RulesData, error) {
	configs := make([]*types.MethodConfig, 0, len(texts))
	for _, text := range texts {
		mc, err := types.ParseMethodConfig(text)
		if err != nil {
			return nil, err
		}
		configs = append(configs, mc)
	}

	including, excluding := s.configuration.Len()
	before := including + excluding

	changed := 0
	switch op {
	case "include":
		s.configuration.Include(configs...)
	case "exclude":
		s.configuration.Exclude(configs...)
	case "remove":
		for _, mc := range configs {
			if s.configuration.Remove(mc) {
				changed++
			}
		}
	}

	including, excluding = s.configuration.Len()
	if op != "remove" {
		changed = including + excluding - before
	}
	return &RulesData{Changed: changed, Including: including, Excluding: excluding}, nil
}

func (s *Server) scanClass(p ScanClassPayload) (*ScanClassData, error) {
	matches, err := s.scanner.ScanClass(p.Content, types.ComputeBlobID(p.Content), types.FileProvenance{FilePath: p.Source})
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []*types.Match{}
	}
	return &ScanClassData{Matches: matches}, nil
}

func (s *Server) sendReady() {
	s.send("ready", ReadyData{Version: Version})
}

func (s *Server) send(reqType string, v any) {
	data, _ := json.Marshal(v)
	s.encoder.Encode(Response{
		Success: true,
		Type:    reqType,
		Data:    data,
	})
}

func (s *Server) sendError(reqType, msg string) {
	s.encoder.Encode(Response{
		Success: false,
		Type:    reqType,
		Error:   msg,
	})
}
