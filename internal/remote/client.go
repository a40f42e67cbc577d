package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/tartampluch/go-huddle/internal/config"
	"github.com/tartampluch/go-huddle/internal/engine"
	"golang.org/x/time/rate"
)

// API is the contract the planner relies on to reach the REST backend.
// This interface allows for mocking in tests and decoupling from the network layer.
type API interface {
	FetchEvent(ctx context.Context, eventID string) (Event, error)
	FetchAvailability(ctx context.Context, eventID string) (Availability, error)
	Confirm(ctx context.Context, req engine.ConfirmRequest) error
	SetDayStatus(ctx context.Context, eventID, userID string, day engine.DateKey, vote engine.Vote) error
}

// Event is a fetched event with its validated window.
type Event struct {
	ID     string
	Title  string
	Window engine.EventWindow
}

// Availability is the fetched organiser and attendee answers.
type Availability struct {
	Organiser engine.Participant
	Attendees []engine.Participant
}

// eventRecord mirrors GET /events/{id}.
type eventRecord struct {
	EarliestDate string `json:"earliest_date"`
	LatestDate   string `json:"latest_date"`
	Duration     int    `json:"duration"`
	Title        string `json:"title"`
}

type participantRecord struct {
	UserID       string            `json:"user_id"`
	Username     string            `json:"username"`
	ProfilePic   string            `json:"profile_pic"`
	Availability map[string]string `json:"availability"`
}

// availabilityRecord mirrors GET /events/{id}/availability.
type availabilityRecord struct {
	Organiser participantRecord   `json:"organiser"`
	Attendees []participantRecord `json:"attendees"`
}

type dayStatusRecord struct {
	UserID string      `json:"user_id"`
	Status engine.Vote `json:"status"`
}

// Client implements API over HTTP with bearer authentication.
type Client struct {
	BaseURL string
	Token   string

	HTTP    *http.Client
	Limiter *rate.Limiter
}

// NewClient validates baseURL and returns a Client with configured timeouts
// and the default request rate limit.
func NewClient(baseURL, token string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	// Security check: ensure strictly HTTP or HTTPS.
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: config.HTTPTimeout},
		Limiter: rate.NewLimiter(rate.Limit(config.APIRequestsPerSecond), config.APIBurst),
	}, nil
}

// FetchEvent retrieves the event and validates its window.
func (c *Client) FetchEvent(ctx context.Context, eventID string) (Event, error) {
	var rec eventRecord
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf(config.APIPathEvent, url.PathEscape(eventID)), nil, &rec); err != nil {
		return Event{}, err
	}

	w, err := engine.NewEventWindow(engine.ParseKey(rec.EarliestDate), engine.ParseKey(rec.LatestDate), rec.Duration)
	if err != nil {
		return Event{}, fmt.Errorf("%s: %w", config.ErrMalformedEvent, err)
	}

	title := rec.Title
	if title == "" {
		title = config.DefaultEventTitle
	}
	return Event{ID: eventID, Title: title, Window: w}, nil
}

// FetchAvailability retrieves everybody's answers. Entries with an unusable
// date are skipped; unrecognised statuses are kept as engine.StatusUnknown.
func (c *Client) FetchAvailability(ctx context.Context, eventID string) (Availability, error) {
	var rec availabilityRecord
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf(config.APIPathAvailability, url.PathEscape(eventID)), nil, &rec); err != nil {
		return Availability{}, err
	}

	out := Availability{
		Organiser: toParticipant(rec.Organiser),
		Attendees: make([]engine.Participant, 0, len(rec.Attendees)),
	}
	for _, a := range rec.Attendees {
		out.Attendees = append(out.Attendees, toParticipant(a))
	}
	return out, nil
}

// Confirm posts the confirm-event action.
func (c *Client) Confirm(ctx context.Context, req engine.ConfirmRequest) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf(config.APIPathConfirm, url.PathEscape(req.EventID)), req, nil)
}

// SetDayStatus stores userID's vote for one day. NoVote clears it.
func (c *Client) SetDayStatus(ctx context.Context, eventID, userID string, day engine.DateKey, vote engine.Vote) error {
	if !day.Valid() {
		return fmt.Errorf("%s: %s", config.ErrBadDate, day)
	}
	path := fmt.Sprintf(config.APIPathDayStatus, url.PathEscape(eventID), day)
	return c.do(ctx, http.MethodPut, path, dayStatusRecord{UserID: userID, Status: vote}, nil)
}

func toParticipant(r participantRecord) engine.Participant {
	p := engine.Participant{
		UserID:       r.UserID,
		Username:     r.Username,
		ProfilePic:   r.ProfilePic,
		Availability: make(map[engine.DateKey]engine.Status, len(r.Availability)),
	}
	for raw, status := range r.Availability {
		k := engine.ParseKey(raw)
		if !k.Valid() {
			slog.Debug(config.MsgSkippedDateKey,
				slog.String(config.LogKeyComponent, config.CompRemote),
				slog.String(config.LogKeyUser, r.UserID),
				slog.String(config.LogKeyValue, raw),
			)
			continue
		}
		s := engine.ParseStatus(status)
		p.Availability[k] = s
		if !s.Known() {
			if p.Unrecognised == nil {
				p.Unrecognised = make(map[engine.DateKey]string)
			}
			p.Unrecognised[k] = status
		}
	}
	return p
}

// do performs one JSON round trip. A nil in skips the body, a nil out discards the response.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrRateLimit, err)
		}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: %w", config.ErrEncodeRequest, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrRequestBuild, err)
	}

	requestID := uuid.NewString()
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	req.Header.Set(config.HeaderAccept, config.MimeJSON)
	req.Header.Set(config.HeaderRequestID, requestID)
	if in != nil {
		req.Header.Set(config.HeaderContentType, config.MimeJSON)
	}
	if c.Token != "" {
		req.Header.Set(config.HeaderAuthorization, config.BearerPrefix+c.Token)
	}

	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompRemote),
		slog.String(config.LogKeyMethod, method),
		slog.String(config.LogKeyURL, c.BaseURL),
		slog.String(config.LogKeyPath, path),
		slog.String(config.LogKeyRequestID, requestID),
	)
	log.Debug(config.MsgAPIRequest)

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Protect against large payloads.
	limited := io.LimitReader(resp.Body, config.MaxHTTPResponseSize)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, limited)
		log.Warn(config.MsgAPIBadStatus, slog.Int(config.LogKeyStatus, resp.StatusCode))
		return fmt.Errorf("%s: %d %s", config.ErrUnexpectedStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, limited)
		return nil
	}
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("%s: %w", config.ErrDecodeResponse, err)
	}
	return nil
}
