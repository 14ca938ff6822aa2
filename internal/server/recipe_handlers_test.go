package server

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"bloh/internal/models"
	"bloh/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngredientEndpoints(t *testing.T) {
	h := newHarness(t)
	author, token := h.user("author", false)
	_, otherToken := h.user("other", false)
	p := h.publishedPost(author, "Pancakes")
	base := fmt.Sprintf("/api/posts/%d/ingredients", p.ID)

	resp := h.json(http.MethodPost, "/api/ingredients", token, fiber.Map{"name": "Flour"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	flour := decode[models.Ingredient](t, resp)
	resp = h.json(http.MethodPost, "/api/ingredients", token, fiber.Map{"name": "Milk"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	milk := decode[models.Ingredient](t, resp)

	resp = h.json(http.MethodPost, base, otherToken, fiber.Map{
		"items": []fiber.Map{{"ingredient_id": flour.ID, "quantity": "200 g"}},
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = h.json(http.MethodPost, base, token, fiber.Map{
		"items": []fiber.Map{
			{"ingredient_id": flour.ID, "quantity": "200 g"},
			{"ingredient_id": milk.ID, "quantity": "300 ml"},
		},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	rows := decode[[]models.PostIngredient](t, resp)
	require.Len(t, rows, 2)

	resp = h.json(http.MethodPatch, base+"/sync", token, []fiber.Map{
		{"id": rows[0].ID, "quantity": "250 g"},
		{"id": rows[1].ID, "_delete": true},
		{"id": 9999, "quantity": "ignored"},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	rows = decode[[]models.PostIngredient](t, resp)
	require.Len(t, rows, 1)
	assert.Equal(t, "250 g", rows[0].Quantity)
	assert.Equal(t, "Flour", rows[0].Ingredient.Name)

	resp = h.json(http.MethodPatch, base+"/sync", token, fiber.Map{"items": "nope"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = h.json(http.MethodPost, base, token, fiber.Map{
		"items": []fiber.Map{{"ingredient_id": 4242, "quantity": "1"}},
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = h.json(http.MethodGet, base, "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.PostIngredient](t, resp), 1)
}

func TestStepEndpoints(t *testing.T) {
	h := newHarness(t)
	author, token := h.user("author", false)
	p := h.publishedPost(author, "Salad")
	base := fmt.Sprintf("/api/posts/%d/steps", p.ID)

	resp := h.multipart(http.MethodPost, base, token,
		map[string]string{"step_data": `[{"description":"chop"},{"description":"serve"}]`},
		map[string][]byte{"step_images_1": testutil.TinyPNG(t, 6, 6)})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	steps := decode[[]stepResponse](t, resp)
	require.Len(t, steps, 2)
	assert.Equal(t, []int{1, 2}, []int{steps[0].Order, steps[1].Order})
	assert.Empty(t, steps[0].Image)
	assert.True(t, strings.HasPrefix(steps[1].Image, "/media/steps/"), steps[1].Image)

	// Delete "chop", add "garnish" at the end.
	resp = h.multipart(http.MethodPatch, base+"/sync", token,
		map[string]string{"step_data": fmt.Sprintf(
			`[{"id":%d,"_delete":true},{"description":"garnish","order":5}]`, steps[0].ID)}, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	steps = decode[[]stepResponse](t, resp)
	require.Len(t, steps, 2)
	assert.Equal(t, "serve", steps[0].Description)
	assert.Equal(t, "garnish", steps[1].Description)
	assert.Equal(t, []int{1, 2}, []int{steps[0].Order, steps[1].Order})

	resp = h.multipart(http.MethodPost, base, token,
		map[string]string{"step_data": `[{"description":"x"}]`},
		map[string][]byte{"step_images_3": testutil.TinyPNG(t, 6, 6)})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorBody(t, resp).Fields, "step_images_3")

	resp = h.multipart(http.MethodPost, base, token, map[string]string{"step_data": "{not json"}, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorBody(t, resp).Fields, "step_data")

	resp = h.multipart(http.MethodPost, base, token,
		map[string]string{"step_data": `[{"description":"only"}]`, "replace": "true"}, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	steps = decode[[]stepResponse](t, resp)
	require.Len(t, steps, 1)
	assert.Equal(t, "only", steps[0].Description)
	assert.Equal(t, 0, h.store.Len(), "replaced step images are removed")

	resp = h.json(http.MethodGet, base, "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]stepResponse](t, resp), 1)
}
