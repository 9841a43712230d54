package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/outbound"
)

const (
	// ScopeDirectory is shown for tenant-wide assignments.
	ScopeDirectory = "Directory"

	auScopePrefix = "/administrativeUnits/"
)

// ScopeResolver turns directory scope ids and groups into display strings.
// Administrative-unit names and group scopes are looked up once and kept in
// bounded LRU caches. Lookup failures fall back to ScopeDirectory.
type ScopeResolver struct {
	directory outbound.DirectoryProvider
	groups    outbound.GroupProvider
	logger    *slog.Logger

	auNames     *lru.Cache[string, string]
	groupScopes *lru.Cache[string, string]
}

// NewScopeResolver creates a resolver whose caches hold up to size entries each.
func NewScopeResolver(directory outbound.DirectoryProvider, groups outbound.GroupProvider, size int, logger *slog.Logger) (*ScopeResolver, error) {
	if size <= 0 {
		size = 256
	}
	auNames, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("administrative unit cache: %w", err)
	}
	groupScopes, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("group scope cache: %w", err)
	}
	return &ScopeResolver{
		directory:   directory,
		groups:      groups,
		logger:      logger,
		auNames:     auNames,
		groupScopes: groupScopes,
	}, nil
}

// DirectoryScope describes a directory scope id: "/" is ScopeDirectory and
// "/administrativeUnits/{id}" becomes "AU: <name>".
func (s *ScopeResolver) DirectoryScope(ctx context.Context, scopeID string) string {
	switch {
	case scopeID == "" || scopeID == "/":
		return ScopeDirectory
	case strings.HasPrefix(scopeID, auScopePrefix):
		id := strings.TrimPrefix(scopeID, auScopePrefix)
		return "AU: " + s.auName(ctx, id)
	default:
		return scopeID
	}
}

func (s *ScopeResolver) auName(ctx context.Context, id string) string {
	if name, ok := s.auNames.Get(id); ok {
		return name
	}
	au, err := s.directory.GetAdministrativeUnit(ctx, id)
	if err != nil || au.DisplayName == "" {
		s.logger.Debug("administrative unit lookup failed", "au_id", id, "error", err)
		// Not cached so a later fetch can succeed.
		return id
	}
	s.auNames.Add(id, au.DisplayName)
	return au.DisplayName
}

// GroupScope classifies a PIM group as tenant-wide or AU-scoped. Only a
// role-assignable group that belongs to administrative units is AU-scoped;
// any other group is ScopeDirectory.
func (s *ScopeResolver) GroupScope(ctx context.Context, groupID string) string {
	if scope, ok := s.groupScopes.Get(groupID); ok {
		return scope
	}
	gs, err := s.groups.GetGroupScope(ctx, groupID)
	if err != nil {
		s.logger.Debug("group scope lookup failed", "group_id", groupID, "error", err)
		return ScopeDirectory
	}

	scope := ScopeDirectory
	if gs.RoleAssignable && len(gs.AdministrativeUnits) > 0 {
		names := make([]string, 0, len(gs.AdministrativeUnits))
		for _, au := range gs.AdministrativeUnits {
			name := au.DisplayName
			if name == "" {
				name = au.ID
			} else {
				s.auNames.Add(au.ID, name)
			}
			names = append(names, name)
		}
		scope = "AU: " + strings.Join(names, ", ")
	}
	s.groupScopes.Add(groupID, scope)
	return scope
}

// Clear purges both caches.
func (s *ScopeResolver) Clear() {
	s.auNames.Purge()
	s.groupScopes.Purge()
}
