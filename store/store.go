package store

import (
	"errors"
	"fmt"

	"github.com/kasuganosora/guildsync/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the durable store collaborator. Every process reconciles its
// in-memory cache from these rows, so they are the cross-process source of
// truth. All methods are synchronous and return an error on transport
// failure.
type Store interface {
	SaveGuild(g *model.Guild) error
	DeleteGuild(id string) error
	GetGuild(id string) (*model.Guild, error)
	GetGuilds() ([]model.Guild, error)

	SaveMember(m *model.GuildMember) error
	// SaveMembers writes several membership rows in one transaction
	// (ownership transfer updates two rows both-or-neither).
	SaveMembers(ms ...*model.GuildMember) error
	DeleteMember(playerID string) error
	GetMember(playerID string) (*model.GuildMember, error)
	GetMembers() ([]model.GuildMember, error)
	GetMembersOfGuild(guildID string) ([]model.GuildMember, error)

	SaveAlliance(a, b string) error
	DeleteAlliance(a, b string) error
	GetAlliances() ([]model.GuildAlliance, error)
	GetAlliancesOfGuild(id string) ([]model.GuildAlliance, error)
}

// SQLStore is the gorm-backed Store implementation.
type SQLStore struct {
	db *gorm.DB
}

// New creates a SQLStore on the given database handle.
func New(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) SaveGuild(g *model.Guild) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(g).Error
	if err != nil {
		return fmt.Errorf("store: save guild %s: %w", g.ID, err)
	}
	return nil
}

func (s *SQLStore) DeleteGuild(id string) error {
	if err := s.db.Delete(&model.Guild{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("store: delete guild %s: %w", id, err)
	}
	return nil
}

func (s *SQLStore) GetGuild(id string) (*model.Guild, error) {
	var g model.Guild
	err := s.db.First(&g, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get guild %s: %w", id, err)
	}
	return &g, nil
}

func (s *SQLStore) GetGuilds() ([]model.Guild, error) {
	var gs []model.Guild
	if err := s.db.Find(&gs).Error; err != nil {
		return nil, fmt.Errorf("store: get guilds: %w", err)
	}
	return gs, nil
}

func (s *SQLStore) SaveMember(m *model.GuildMember) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}},
		UpdateAll: true,
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("store: save member %s: %w", m.PlayerID, err)
	}
	return nil
}

func (s *SQLStore) SaveMembers(ms ...*model.GuildMember) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range ms {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "player_id"}},
				UpdateAll: true,
			}).Create(m).Error
			if err != nil {
				return fmt.Errorf("store: save member %s: %w", m.PlayerID, err)
			}
		}
		return nil
	})
}

func (s *SQLStore) DeleteMember(playerID string) error {
	if err := s.db.Delete(&model.GuildMember{}, "player_id = ?", playerID).Error; err != nil {
		return fmt.Errorf("store: delete member %s: %w", playerID, err)
	}
	return nil
}

func (s *SQLStore) GetMember(playerID string) (*model.GuildMember, error) {
	var m model.GuildMember
	err := s.db.First(&m, "player_id = ?", playerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get member %s: %w", playerID, err)
	}
	return &m, nil
}

func (s *SQLStore) GetMembers() ([]model.GuildMember, error) {
	var ms []model.GuildMember
	if err := s.db.Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("store: get members: %w", err)
	}
	return ms, nil
}

func (s *SQLStore) GetMembersOfGuild(guildID string) ([]model.GuildMember, error) {
	var ms []model.GuildMember
	if err := s.db.Where("guild_id = ?", guildID).Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("store: get members of guild %s: %w", guildID, err)
	}
	return ms, nil
}

// orderPair returns the pair with the smaller id first, matching the
// GuildAlliance storage convention.
func orderPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

func (s *SQLStore) SaveAlliance(a, b string) error {
	ga, gb := orderPair(a, b)
	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.GuildAlliance{GuildA: ga, GuildB: gb}).Error
	if err != nil {
		return fmt.Errorf("store: save alliance %s/%s: %w", ga, gb, err)
	}
	return nil
}

func (s *SQLStore) DeleteAlliance(a, b string) error {
	ga, gb := orderPair(a, b)
	err := s.db.Delete(&model.GuildAlliance{}, "guild_a = ? AND guild_b = ?", ga, gb).Error
	if err != nil {
		return fmt.Errorf("store: delete alliance %s/%s: %w", ga, gb, err)
	}
	return nil
}

func (s *SQLStore) GetAlliances() ([]model.GuildAlliance, error) {
	var as []model.GuildAlliance
	if err := s.db.Find(&as).Error; err != nil {
		return nil, fmt.Errorf("store: get alliances: %w", err)
	}
	return as, nil
}

func (s *SQLStore) GetAlliancesOfGuild(id string) ([]model.GuildAlliance, error) {
	var as []model.GuildAlliance
	err := s.db.Where("guild_a = ? OR guild_b = ?", id, id).Find(&as).Error
	if err != nil {
		return nil, fmt.Errorf("store: get alliances of guild %s: %w", id, err)
	}
	return as, nil
}
