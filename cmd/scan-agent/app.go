package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/tapango/cargotrack/config"
	"github.com/tapango/cargotrack/internal/scanqueue"
)

// agentClient - транспорт агента до API. Online нужен отдельно от
// Deliver: переход offline -> online триггерит слив очереди.
type agentClient interface {
	Deliver(ctx context.Context, scan scanqueue.PendingScan) error
	Online(ctx context.Context) bool
}

type agentOpts struct {
	location      string
	operatorID    string
	flushInterval time.Duration
}

func agentOptsFromConfig(cfg *config.Config) agentOpts {
	flushInterval := time.Duration(cfg.Agent.FlushIntervalSeconds) * time.Second
	if flushInterval <= 0 {
		flushInterval = 15 * time.Second
	}
	return agentOpts{
		location:      cfg.Agent.Location,
		operatorID:    cfg.Agent.OperatorID,
		flushInterval: flushInterval,
	}
}

// runScanAgent читает номера коробов построчно из input, кладёт их в
// локальную очередь и сливает её в API: на старте, по тикеру и при
// возврате связи. Захват скана никогда не ждёт сети.
func runScanAgent(ctx context.Context, opts agentOpts, q *scanqueue.Queue, client agentClient, input io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(input)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	online := client.Online(ctx)
	if online {
		flush(ctx, q, client)
	} else {
		slog.Info("starting offline", "queued", q.Len())
	}

	ticker := time.NewTicker(opts.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-lines:
			if !ok {
				// Вход закрыт: последний шанс слить остаток.
				if client.Online(ctx) {
					flush(ctx, q, client)
				}
				return nil
			}
			scan, accepted := parseScanLine(line, opts)
			if !accepted {
				continue
			}
			queued, err := q.Enqueue(scan)
			if err != nil {
				slog.Error("enqueue failed", "barcode", scan.Barcode, "err", err)
				continue
			}
			slog.Info("scan captured", "barcode", queued.Barcode, "scan_type", queued.ScanType, "queued", q.Len())
			if online {
				flush(ctx, q, client)
			}

		case <-ticker.C:
			was := online
			online = client.Online(ctx)
			if online && (!was || q.Len() > 0) {
				if !was {
					slog.Info("back online", "queued", q.Len())
				}
				flush(ctx, q, client)
			}
		}
	}
}

// parseScanLine принимает "BARCODE" или "BARCODE;scanType".
func parseScanLine(line string, opts agentOpts) (scanqueue.PendingScan, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return scanqueue.PendingScan{}, false
	}

	barcode, scanType, _ := strings.Cut(line, ";")
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return scanqueue.PendingScan{}, false
	}

	scan := scanqueue.PendingScan{
		Barcode:  barcode,
		ScanType: strings.TrimSpace(scanType),
	}
	if opts.location != "" {
		scan.Location = &opts.location
	}
	if opts.operatorID != "" {
		scan.OperatorID = &opts.operatorID
	}
	return scan, true
}

func flush(ctx context.Context, q *scanqueue.Queue, client agentClient) {
	n, err := q.Flush(ctx, client)
	if n > 0 {
		slog.Info("queue flushed", "delivered", n, "left", q.Len())
	}
	if err != nil {
		slog.Warn("flush interrupted, keeping queue", "left", q.Len(), "err", err)
	}
}
