package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"bloh/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestPosts_Workbook(t *testing.T) {
	cal, minutes := 420, 35
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	posts := []models.Post{
		{
			ID: 7, PostType: models.PostTypeRecipe, Status: models.PostStatusPublished,
			Title:  "Shakshuka",
			Author: models.User{Username: "chef", DisplayName: "Head Chef"},
			Tags:   []models.Tag{{Name: "Breakfast"}, {Name: "Eggs"}},
			LikesCount: 3, CommentsCount: 1, ViewsCount: 40,
			Calories: &cal, CookingTime: &minutes,
			CreatedAt: from, UpdatedAt: from,
		},
		{
			ID: 8, PostType: models.PostTypeArticle, Status: models.PostStatusDraft,
			Title:     strings.Repeat("long title ", 20),
			Author:    models.User{Username: "writer"},
			CreatedAt: from, UpdatedAt: from,
		},
	}
	filter := Filter{DateFrom: &from, Statuses: []string{"published", "draft"}, TagIDs: []uint{1, 2}}

	data, err := Posts(posts, filter, from.Add(time.Hour))
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{MetaSheet, PostsSheet}, wb.GetSheetList())

	rows, err := wb.GetRows(PostsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, PostColumns, rows[0])
	assert.Equal(t, []string{
		"7", "recipe", "published", "Shakshuka", "Head Chef",
		"2024-03-01 00:00:00", "2024-03-01 00:00:00",
		"Breakfast, Eggs", "3", "1", "40", "420", "35",
	}, rows[1])
	assert.Equal(t, "writer", rows[2][4])

	width, err := wb.GetColWidth(PostsSheet, "D")
	require.NoError(t, err)
	assert.Equal(t, float64(maxColumnWidth), width)

	meta, err := wb.GetRows(MetaSheet)
	require.NoError(t, err)
	values := map[string]string{}
	for _, r := range meta[1:] {
		if len(r) == 2 {
			values[r[0]] = r[1]
		}
	}
	assert.Equal(t, "2024-03-01 01:00:00", values["generated_at"])
	assert.Equal(t, "2024-03-01", values["date_from"])
	assert.Equal(t, "published,draft", values["status"])
	assert.Equal(t, "1,2", values["tags"])
}

func TestPosts_EmptyListing(t *testing.T) {
	data, err := Posts(nil, Filter{}, time.Now())
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(PostsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestClampWidth(t *testing.T) {
	assert.Equal(t, minColumnWidth, clampWidth(1))
	assert.Equal(t, 20, clampWidth(20))
	assert.Equal(t, maxColumnWidth, clampWidth(500))
}
