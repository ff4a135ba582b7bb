package forecast

import (
	"sync"

	"demand-forecast/internal/model"
)

// Element identifiers of the forecast page.
const (
	FieldStartDate = "start-date"
	FieldStartTime = "start-time"
	FieldEndDate   = "end-date"
	FieldEndTime   = "end-time"
	OutputTextID   = "output-text"
	CanvasID       = "graphCanvas"
)

// Form exposes input values by element ID.
type Form interface {
	Value(id string) string
}

// TextSink receives the output text.
type TextSink interface {
	SetText(text string)
}

// Filler is a Form that can be populated from a request.
type Filler interface {
	Form
	Fill(req model.PredictRequest)
}

// ReadRequest builds the request from the four input fields, values untouched.
func ReadRequest(f Form) model.PredictRequest {
	return model.PredictRequest{
		StartDate: f.Value(FieldStartDate),
		StartTime: f.Value(FieldStartTime),
		EndDate:   f.Value(FieldEndDate),
		EndTime:   f.Value(FieldEndTime),
	}
}

// Panel is an in-memory set of page elements: the four inputs and the
// output text.
type Panel struct {
	mu     sync.RWMutex
	fields map[string]string
	text   string
	writes int
}

func NewPanel() *Panel {
	return &Panel{fields: make(map[string]string)}
}

func (p *Panel) Set(id, value string) {
	p.mu.Lock()
	p.fields[id] = value
	p.mu.Unlock()
}

func (p *Panel) Fill(req model.PredictRequest) {
	p.mu.Lock()
	p.fields[FieldStartDate] = req.StartDate
	p.fields[FieldStartTime] = req.StartTime
	p.fields[FieldEndDate] = req.EndDate
	p.fields[FieldEndTime] = req.EndTime
	p.mu.Unlock()
}

func (p *Panel) Value(id string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fields[id]
}

func (p *Panel) SetText(text string) {
	p.mu.Lock()
	p.text = text
	p.writes++
	p.mu.Unlock()
}

func (p *Panel) Text() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.text
}

// Writes counts SetText calls.
func (p *Panel) Writes() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.writes
}
