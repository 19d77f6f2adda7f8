package dronelogbook

import (
	"context"
	"dronelog-backend/internal/archive"
	"dronelog-backend/internal/bundlecache"
	"dronelog-backend/internal/components/assert"
	"dronelog-backend/internal/linkresolver"
	"dronelog-backend/internal/scrapers/dronelogbook/extract"
	"errors"
	"fmt"
	"net/url"
	"path"
	"time"
)

const report_downloader_bulk = "downloader.bulk"

type DownloadEventType string

const (
	DownloadProgress DownloadEventType = "progress"
	DownloadSuccess  DownloadEventType = "success"
	DownloadError    DownloadEventType = "error"
	DownloadComplete DownloadEventType = "complete"
)

type DownloadEvent struct {
	Type     DownloadEventType `json:"type"`
	Current  int               `json:"current"`
	Total    int               `json:"total"`
	FlightID string            `json:"flightId,omitempty"`
	Filename string            `json:"filename,omitempty"`
	Size     int               `json:"size,omitempty"`
	Error    string            `json:"error,omitempty"`
	// set on the complete event
	Token      string `json:"token,omitempty"`
	Downloaded int    `json:"downloaded,omitempty"`
	Failed     int    `json:"failed,omitempty"`
}

// Downloader fetches the log files of many flights one after another and
// leaves them in the bundle cache for a later zip download.
type Downloader struct {
	client   *Client
	resolver linkresolver.Resolver
	cache    *bundlecache.Cache
	// delay is waited between two flights.
	delay time.Duration
}

func NewDownloader(client *Client, resolver linkresolver.Resolver, cache *bundlecache.Cache, delay time.Duration) *Downloader {
	assert.NotNil(client)
	assert.NotNil(resolver)
	assert.NotNil(cache)
	return &Downloader{
		client:   client,
		resolver: resolver,
		cache:    cache,
		delay:    delay,
	}
}

func (d *Downloader) wait(ctx context.Context) error {
	if d.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) flightDetailURL(flightID string) string {
	query := url.Values{}
	query.Set("id", flightID)
	return c.AbsoluteURL(c.cfg.Paths.FlightDetail + "?" + query.Encode())
}

// fileName picks the name of a downloaded file from the response header,
// then the url, then the flight id.
func fileName(disposition, link, flightID string) string {
	if name, ok := extract.AttachmentFilename(disposition); ok {
		return name
	}
	if parsed, err := url.Parse(link); err == nil {
		base := extract.SafeFilename(path.Base(parsed.Path))
		if base != "" && base != "viewFile.php" {
			return base
		}
	}
	return "flight_" + extract.SafeFilename(flightID)
}

// downloadOne fetches the detail page of a flight, resolves its download
// link and downloads the file.
func (d *Downloader) downloadOne(ctx context.Context, flightID string) (archive.File, error) {
	c := d.client
	pageURL := c.flightDetailURL(flightID)

	page, err := c.FetchPage(ctx, pageURL)
	if err != nil {
		return archive.File{}, fmt.Errorf("fetch detail page: %w", err)
	}

	link, err := d.resolver.Resolve(ctx, linkresolver.Target{
		PageURL: pageURL,
		HTML:    page,
		Cookies: c.HTTPCookies(),
	})
	if err != nil {
		return archive.File{}, fmt.Errorf("resolve download link: %w", err)
	}

	res, err := c.download.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return archive.File{}, fmt.Errorf("download: %w", err)
	}
	if res.StatusCode() >= 400 {
		return archive.File{}, StatusError{Path: link, Status: res.StatusCode()}
	}
	if len(res.Body()) == 0 {
		return archive.File{}, errors.New("download: empty file")
	}

	return archive.File{
		Name: fileName(res.Header().Get("Content-Disposition"), link, flightID),
		Data: res.Body(),
	}, nil
}

// Bulk downloads the files of flightIDs in order and reports each step
// through emit. Failed flights are reported and skipped. The final
// complete event carries the bundle token when anything was downloaded.
// An error from emit or a cancelled ctx ends the run early.
func (d *Downloader) Bulk(ctx context.Context, flightIDs []string, emit func(DownloadEvent) error) error {
	total := len(flightIDs)
	var files []archive.File
	failed := 0

	for i, flightID := range flightIDs {
		if i > 0 {
			if err := d.wait(ctx); err != nil {
				return err
			}
		}

		current := i + 1
		err := emit(DownloadEvent{Type: DownloadProgress, Current: current, Total: total, FlightID: flightID})
		if err != nil {
			return err
		}

		file, err := d.downloadOne(ctx, flightID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			d.client.tel.ReportWarning(report_downloader_bulk, err, flightID)
			err = emit(DownloadEvent{Type: DownloadError, Current: current, Total: total, FlightID: flightID, Error: err.Error()})
			if err != nil {
				return err
			}
			continue
		}

		files = append(files, file)
		err = emit(DownloadEvent{
			Type:     DownloadSuccess,
			Current:  current,
			Total:    total,
			FlightID: flightID,
			Filename: file.Name,
			Size:     len(file.Data),
		})
		if err != nil {
			return err
		}
	}

	complete := DownloadEvent{
		Type:       DownloadComplete,
		Current:    total,
		Total:      total,
		Downloaded: len(files),
		Failed:     failed,
	}
	if len(files) > 0 {
		complete.Token = d.cache.Put(files)
	}
	d.client.tel.ReportCount(report_downloader_bulk, int64(len(files)))
	return emit(complete)
}
