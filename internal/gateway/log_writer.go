package gateway

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"aiproxy/internal/model"
	"aiproxy/internal/repository"
)

// LogWriter 异步批量日志写入器
// 请求路径上只做一次非阻塞的通道写入，队列满时丢弃并告警
type LogWriter struct {
	repo          repository.RequestLogRepositoryInterface
	entryChan     chan *model.RequestLog
	batchSize     int
	flushInterval time.Duration
	wg            sync.WaitGroup
	stopChan      chan struct{}
	stopped       bool
	mu            sync.Mutex
}

// NewLogWriter 创建日志写入器
func NewLogWriter(repo repository.RequestLogRepositoryInterface, bufferSize, batchSize int, flushInterval time.Duration) *LogWriter {
	w := &LogWriter{
		repo:          repo,
		entryChan:     make(chan *model.RequestLog, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stopChan:      make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Write 异步写入日志（非阻塞）
func (w *LogWriter) Write(entry *model.RequestLog) bool {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return false
	}
	w.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	select {
	case w.entryChan <- entry:
		return true
	default:
		log.Warn("log writer: queue full, dropping entry")
		return false
	}
}

// Stop 停止写入器并刷新剩余日志
func (w *LogWriter) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()
}

// run 后台运行的写入循环
func (w *LogWriter) run() {
	defer w.wg.Done()

	batch := make([]*model.RequestLog, 0, w.batchSize)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-w.entryChan:
			batch = append(batch, entry)
			if len(batch) >= w.batchSize {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-w.stopChan:
			// 排空队列中剩余的日志；通道保持打开，避免与迟到的 Write 竞争
			for {
				select {
				case entry := <-w.entryChan:
					batch = append(batch, entry)
				default:
					if len(batch) > 0 {
						w.flush(batch)
					}
					return
				}
			}
		}
	}
}

// flush 批量写入数据库
func (w *LogWriter) flush(entries []*model.RequestLog) {
	if err := w.repo.BatchInsert(entries); err != nil {
		log.Errorf("log writer: failed to flush %d entries: %v", len(entries), err)
		return
	}
	log.Debugf("log writer: flushed %d entries", len(entries))
}
