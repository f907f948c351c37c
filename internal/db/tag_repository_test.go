package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
)

func TestTagRepository_CreateAndList(t *testing.T) {
	database := SetupTestDB(t)
	repo := NewTagRepository(database)

	tag := models.NewTag("tenant-1", "VIP", "#ff0000")
	require.NoError(t, repo.Create(tag))
	require.NoError(t, repo.Create(models.NewTag("tenant-1", "Lead", "")))
	require.NoError(t, repo.Create(models.NewTag("tenant-2", "Other", "")))

	tags, err := repo.ListByTenant("tenant-1")
	require.NoError(t, err)
	require.Len(t, tags, 2)
	// Sorted by name
	assert.Equal(t, "Lead", tags[0].Name)
	assert.Equal(t, "VIP", tags[1].Name)
	assert.Equal(t, 0, tags[1].UsageCount)

	t.Run("duplicate name within tenant rejected", func(t *testing.T) {
		err := repo.Create(models.NewTag("tenant-1", "VIP", ""))
		assert.Error(t, err)
	})

	t.Run("nil tag rejected", func(t *testing.T) {
		assert.Error(t, repo.Create(nil))
	})
}

func TestTagRepository_AttachDetach(t *testing.T) {
	database := SetupTestDB(t)
	repo := NewTagRepository(database)
	session := createTestSession(t, database)

	tag := models.NewTag("tenant-1", "VIP", "#ff0000")
	require.NoError(t, repo.Create(tag))

	require.NoError(t, repo.Attach(session.ID, "5511999990000", tag.ID))
	// Attaching twice is a no-op
	require.NoError(t, repo.Attach(session.ID, "5511999990000", tag.ID))

	tags, err := repo.ListForConversation(session.ID, "5511999990000")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "VIP", tags[0].Name)
	assert.Equal(t, 1, tags[0].UsageCount)

	stored, err := repo.GetByID(tag.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 1, stored.UsageCount)

	require.NoError(t, repo.Detach(session.ID, "5511999990000", tag.ID))

	tags, err = repo.ListForConversation(session.ID, "5511999990000")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestTagRepository_Delete(t *testing.T) {
	database := SetupTestDB(t)
	repo := NewTagRepository(database)
	session := createTestSession(t, database)

	tag := models.NewTag("tenant-1", "Doomed", "")
	require.NoError(t, repo.Create(tag))
	require.NoError(t, repo.Attach(session.ID, "5511999990000", tag.ID))

	require.NoError(t, repo.Delete(tag.ID))

	stored, err := repo.GetByID(tag.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	// Attachments cascade away with the tag
	tags, err := repo.ListForConversation(session.ID, "5511999990000")
	require.NoError(t, err)
	assert.Empty(t, tags)

	t.Run("unknown tag", func(t *testing.T) {
		err := repo.Delete("no-such-tag")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}
