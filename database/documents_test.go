package database

import (
	"testing"
	"time"

	"github.com/siherrmann/hybridqa/helper"
	"github.com/siherrmann/hybridqa/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentsNewDocumentsDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewDocumentsDBHandler", func(t *testing.T) {
		documentsDbHandler, err := NewDocumentsDBHandler(database, true)
		assert.NoError(t, err, "Expected NewDocumentsDBHandler to not return an error")
		require.NotNil(t, documentsDbHandler, "Expected NewDocumentsDBHandler to return a non-nil instance")
		require.NotNil(t, documentsDbHandler.db, "Expected NewDocumentsDBHandler to have a non-nil database instance")
		require.NotNil(t, documentsDbHandler.db.Instance, "Expected NewDocumentsDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewDocumentsDBHandler with nil database", func(t *testing.T) {
		_, err := NewDocumentsDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating DocumentsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestDocumentsUpsert(t *testing.T) {
	_, documentsDbHandler, _, _ := initHandlers(t)

	t.Run("Upsert new document", func(t *testing.T) {
		doc := model.NewDocument("report_2024")

		err := documentsDbHandler.UpsertDocument(doc)
		assert.NoError(t, err, "Expected UpsertDocument to not return an error")
		assert.NotEmpty(t, doc.RID, "Expected upserted document to have a RID")
		assert.Equal(t, "report_2024", doc.DocID, "Expected doc ID to match")
		assert.Equal(t, "report_2024", doc.Title, "Expected title to default to the doc ID")
		assert.WithinDuration(t, doc.CreatedAt, time.Now(), 2*time.Second, "Expected CreatedAt to be set")
	})

	t.Run("Upsert existing document keeps the row", func(t *testing.T) {
		doc := model.NewDocument("report_2024")
		err := documentsDbHandler.UpsertDocument(doc)
		require.NoError(t, err)
		firstID := doc.ID

		updated := &model.Document{DocID: "report_2024", Title: "Annual Report 2024"}
		err = documentsDbHandler.UpsertDocument(updated)
		assert.NoError(t, err, "Expected re-upsert to not return an error")
		assert.Equal(t, firstID, updated.ID, "Expected re-upsert to keep the same row")
		assert.Equal(t, "Annual Report 2024", updated.Title, "Expected title to be updated")
	})
}

func TestDocumentsSelect(t *testing.T) {
	_, documentsDbHandler, _, _ := initHandlers(t)

	doc := model.NewDocument("manual_v2")
	err := documentsDbHandler.UpsertDocument(doc)
	require.NoError(t, err)

	t.Run("Select existing document", func(t *testing.T) {
		retrievedDoc, err := documentsDbHandler.SelectDocument("manual_v2")
		assert.NoError(t, err, "Expected SelectDocument to not return an error")
		require.NotNil(t, retrievedDoc, "Expected SelectDocument to return a non-nil document")
		assert.Equal(t, doc.RID, retrievedDoc.RID, "Expected document RIDs to match")
		assert.Equal(t, doc.Title, retrievedDoc.Title, "Expected titles to match")
	})

	t.Run("Select missing document returns not found", func(t *testing.T) {
		_, err := documentsDbHandler.SelectDocument("does_not_exist")
		assert.Error(t, err, "Expected SelectDocument to return an error for a missing document")
		assert.ErrorIs(t, err, helper.ErrNotFound, "Expected error to wrap ErrNotFound")
	})
}

func TestDocumentsSelectAll(t *testing.T) {
	_, documentsDbHandler, _, _ := initHandlers(t)

	docIDs := []string{"beta_doc", "alpha_doc", "gamma_doc"}
	for _, docID := range docIDs {
		err := documentsDbHandler.UpsertDocument(model.NewDocument(docID))
		require.NoError(t, err)
	}

	t.Run("Select all documents ordered by doc ID", func(t *testing.T) {
		retrievedDocs, err := documentsDbHandler.SelectAllDocuments()
		assert.NoError(t, err, "Expected SelectAllDocuments to not return an error")
		require.Len(t, retrievedDocs, 3, "Expected to retrieve all inserted documents")
		assert.Equal(t, "alpha_doc", retrievedDocs[0].DocID, "Expected documents ordered by doc ID")
		assert.Equal(t, "beta_doc", retrievedDocs[1].DocID, "Expected documents ordered by doc ID")
		assert.Equal(t, "gamma_doc", retrievedDocs[2].DocID, "Expected documents ordered by doc ID")
	})
}
