package local

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dursunkoc/incubator-samoa/engine"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/dursunkoc/incubator-samoa/topology"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/tryfix/log"
)

type Err struct {
	Err string `json:"error"`
}

type processorView struct {
	ID                topology.ProcessorID `json:"id"`
	Type              string               `json:"type"`
	Parallelism       int                  `json:"parallelism"`
	Entrance          bool                 `json:"entrance"`
	ExpectedTerminals int                  `json:"expected_terminals"`
}

type edgeView struct {
	Stream      topology.StreamID    `json:"stream"`
	Source      topology.ProcessorID `json:"source"`
	Destination topology.ProcessorID `json:"destination"`
	Grouping    string               `json:"grouping"`
	Feedback    bool                 `json:"feedback"`
}

type streamView struct {
	ID     topology.StreamID    `json:"id"`
	Source topology.ProcessorID `json:"source"`
	Edges  []edgeView           `json:"edges"`
}

type topologyView struct {
	Name       string          `json:"name"`
	Processors []processorView `json:"processors"`
	Streams    []streamView    `json:"streams"`
}

type processorDetail struct {
	processorView
	Inbound   []edgeView             `json:"inbound"`
	Outbound  []topology.StreamID    `json:"outbound"`
	Instances []engine.InstanceStats `json:"instances"`
}

type inspector struct {
	executor *engine.Executor
	logger   log.Logger
}

func newInspector(executor *engine.Executor, logger log.Logger) http.Handler {
	h := &inspector{
		executor: executor,
		logger:   logger.NewLog(log.Prefixed(`Inspector`)),
	}

	r := mux.NewRouter()
	r.HandleFunc(`/topology`, h.topology).Methods(http.MethodGet)
	r.HandleFunc(`/topology/dot`, h.dot).Methods(http.MethodGet)
	r.HandleFunc(`/processors/{id}`, h.processor).Methods(http.MethodGet)
	r.HandleFunc(`/report`, h.report).Methods(http.MethodGet)

	return handlers.CORS()(r)
}

func (h *inspector) view(p topology.ProcessorInfo) processorView {
	return processorView{
		ID:                p.ID,
		Type:              fmt.Sprintf(`%T`, p.Node),
		Parallelism:       p.Parallelism,
		Entrance:          p.Entrance,
		ExpectedTerminals: h.executor.Topology().ExpectedTerminals(p.ID),
	}
}

func (h *inspector) edgeView(e topology.Edge) edgeView {
	return edgeView{
		Stream:      e.Stream,
		Source:      e.Source,
		Destination: e.Destination,
		Grouping:    e.Grouping.String(),
		Feedback:    h.executor.Topology().IsFeedback(e.Stream, e.Destination),
	}
}

func (h *inspector) topology(w http.ResponseWriter, _ *http.Request) {
	t := h.executor.Topology()
	view := topologyView{Name: t.Name()}

	for _, p := range t.Processors() {
		view.Processors = append(view.Processors, h.view(p))
	}

	for _, s := range t.Streams() {
		sv := streamView{ID: s.ID(), Source: s.Source()}
		for _, e := range s.Edges() {
			sv.Edges = append(sv.Edges, h.edgeView(e))
		}
		view.Streams = append(view.Streams, sv)
	}

	h.encode(w, http.StatusOK, view)
}

func (h *inspector) dot(w http.ResponseWriter, _ *http.Request) {
	dot, err := h.executor.Topology().Describe()
	if err != nil {
		h.encodeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set(`Content-Type`, `text/vnd.graphviz`)
	if _, err := w.Write([]byte(dot)); err != nil {
		h.logger.Error(err)
	}
}

func (h *inspector) processor(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)[`id`])
	if err != nil {
		h.encodeError(w, http.StatusBadRequest, errors.Wrap(topology.ErrInvalidArgument, `processor id must be numeric`))
		return
	}

	t := h.executor.Topology()
	info, ok := t.Processor(topology.ProcessorID(id))
	if !ok {
		h.encodeError(w, http.StatusNotFound, errors.Wrapf(topology.ErrUnknownProcessor, `processor %d`, id))
		return
	}

	detail := processorDetail{processorView: h.view(info)}
	for _, e := range t.InboundEdges(info.ID) {
		detail.Inbound = append(detail.Inbound, h.edgeView(e.Edge))
	}

	for _, s := range t.OutboundStreams(info.ID) {
		detail.Outbound = append(detail.Outbound, s.ID())
	}

	for _, s := range h.executor.Report().Instances {
		if s.Processor == info.ID {
			detail.Instances = append(detail.Instances, s)
		}
	}

	h.encode(w, http.StatusOK, detail)
}

func (h *inspector) report(w http.ResponseWriter, _ *http.Request) {
	h.encode(w, http.StatusOK, h.executor.Report())
}

func (h *inspector) encode(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set(`Content-Type`, `application/json`)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error(err)
	}
}

func (h *inspector) encodeError(w http.ResponseWriter, status int, err error) {
	h.encode(w, status, Err{Err: err.Error()})
}

// serve starts handler on host, the returned func shuts the server down.
func serve(host string, handler http.Handler, logger log.Logger) (func(), error) {
	listener, err := net.Listen(`tcp`, host)
	if err != nil {
		return nil, errors.Wrapf(err, `inspector cannot listen on %s`, host)
	}

	srv := &http.Server{Handler: handler}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error(fmt.Sprintf(`Cannot start web server : %+v`, err))
		}
	}()

	logger.Info(fmt.Sprintf(`Http server started on %s`, listener.Addr()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf(`web server shutdown failed due to %s`, err))
		}
	}, nil
}
