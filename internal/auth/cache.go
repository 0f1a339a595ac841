package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotCache stores resolved permission sets. Keys already include the
// permission version, so preset changes invalidate by changing the key
// rather than by explicit deletion; the TTL bounds garbage from old
// versions. Cache failures degrade to recomputation, never to a denial.
type SnapshotCache interface {
	Get(ctx context.Context, key string) (EffectivePermissionSet, bool)
	Set(ctx context.Context, key string, set EffectivePermissionSet)
}

// snapshotPayload is the JSON wire form of an EffectivePermissionSet. Maps
// with struct keys do not marshal, so capabilities flatten into pairs.
type snapshotPayload struct {
	Capabilities [][2]uint64 `json:"caps"`
	Locations    []uint64    `json:"locs"`
	Version      uint64      `json:"v"`
}

// RedisSnapshotCache caches permission snapshots in Redis.
type RedisSnapshotCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisSnapshotCache builds a cache with the given TTL and key prefix.
func NewRedisSnapshotCache(rdb *redis.Client, ttl time.Duration, prefix string) *RedisSnapshotCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if prefix == "" {
		prefix = "perm"
	}
	return &RedisSnapshotCache{rdb: rdb, ttl: ttl, prefix: prefix}
}

func (c *RedisSnapshotCache) Get(ctx context.Context, key string) (EffectivePermissionSet, bool) {
	bs, err := c.rdb.Get(ctx, c.prefix+":"+key).Bytes()
	if err != nil {
		return EffectivePermissionSet{}, false
	}
	var p snapshotPayload
	if err := json.Unmarshal(bs, &p); err != nil {
		return EffectivePermissionSet{}, false
	}
	set := EffectivePermissionSet{
		Capabilities: make(map[Capability]struct{}, len(p.Capabilities)),
		Locations:    make(map[uint64]struct{}, len(p.Locations)),
		Version:      p.Version,
	}
	for _, pair := range p.Capabilities {
		set.Capabilities[Capability{ModuleID: pair[0], ActionID: pair[1]}] = struct{}{}
	}
	for _, l := range p.Locations {
		set.Locations[l] = struct{}{}
	}
	return set, true
}

func (c *RedisSnapshotCache) Set(ctx context.Context, key string, set EffectivePermissionSet) {
	p := snapshotPayload{
		Capabilities: make([][2]uint64, 0, len(set.Capabilities)),
		Locations:    make([]uint64, 0, len(set.Locations)),
		Version:      set.Version,
	}
	for c := range set.Capabilities {
		p.Capabilities = append(p.Capabilities, [2]uint64{c.ModuleID, c.ActionID})
	}
	for l := range set.Locations {
		p.Locations = append(p.Locations, l)
	}
	bs, err := json.Marshal(p)
	if err != nil {
		return
	}
	_ = c.rdb.SetEx(ctx, c.prefix+":"+key, bs, c.ttl).Err()
}

// SnapshotSource resolves effective permission sets from the preset store,
// consulting the cache first. Cache is optional; a nil cache means every
// call recomputes.
type SnapshotSource struct {
	Presets PresetStore
	Cache   SnapshotCache
}

// Effective returns the current effective permission set for the user under
// the given access key. The version counter is always read fresh from the
// store so a cached snapshot from an older version can never be served.
func (s *SnapshotSource) Effective(ctx context.Context, userID, roleID, accessKeyID uint64) (EffectivePermissionSet, error) {
	ver, err := s.Presets.Version(ctx, userID, roleID)
	if err != nil {
		return EffectivePermissionSet{}, err
	}
	key := fmt.Sprintf("%d:%d:%d:v%d", userID, roleID, accessKeyID, ver)
	if s.Cache != nil {
		if set, ok := s.Cache.Get(ctx, key); ok {
			return set, nil
		}
	}

	actions, err := s.Presets.RoleActionPresets(ctx, roleID)
	if err != nil {
		return EffectivePermissionSet{}, err
	}
	locations, err := s.Presets.RoleLocationPresets(ctx, roleID)
	if err != nil {
		return EffectivePermissionSet{}, err
	}
	overrides, err := s.Presets.UserOverrides(ctx, userID, roleID, accessKeyID)
	if err != nil {
		return EffectivePermissionSet{}, err
	}

	set := Resolve(actions, locations, overrides, accessKeyID, ver)
	if s.Cache != nil {
		s.Cache.Set(ctx, key, set)
	}
	return set, nil
}
