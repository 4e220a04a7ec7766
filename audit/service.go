package audit

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/kasuganosora/guildsync/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service writes guild action log entries asynchronously in batches. Log
// never blocks a guild operation; a full channel drops the entry with a
// warning.
type Service struct {
	db     *gorm.DB
	ch     chan *model.GuildLog
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	svc := &Service{
		db:     db,
		ch:     make(chan *model.GuildLog, 1024),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Log enqueues one guild action for async DB write. detail is marshalled to
// JSON; pass nil for actions with no payload.
func (svc *Service) Log(guildID, playerID, action string, detail interface{}) {
	var detailJSON datatypes.JSON
	if detail != nil {
		b, _ := json.Marshal(detail)
		detailJSON = datatypes.JSON(b)
	}
	record := &model.GuildLog{
		GuildID:  guildID,
		PlayerID: playerID,
		Action:   action,
		Detail:   detailJSON,
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("guild log channel full, dropping entry",
			zap.String("guild_id", guildID),
			zap.String("action", action))
	}
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop() {
	select {
	case <-svc.stopCh:
	default:
		close(svc.stopCh)
	}
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	batch := make([]*model.GuildLog, 0, 100)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("guild log batch write failed", zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case record := <-svc.ch:
			batch = append(batch, record)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			// Drain remaining entries.
			for {
				select {
				case record := <-svc.ch:
					batch = append(batch, record)
				default:
					flush()
					return
				}
			}
		}
	}
}
