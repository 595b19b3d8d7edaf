package rag

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// fakeQueueClient 记录入队任务
type fakeQueueClient struct {
	enqueued []string
	err      error
}

func (f *fakeQueueClient) EnqueueProcessDocument(documentID, content string) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, documentID)
	return nil
}

func (f *fakeQueueClient) Close() error { return nil }

var indexerDBSeq int

func newIndexerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	indexerDBSeq++
	dsn := fmt.Sprintf("file:indexer_test_%d?mode=memory&cache=shared", indexerDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&KnowledgeDocument{}))

	return db
}

func newTestDocumentService(t *testing.T, db *gorm.DB, queueClient *fakeQueueClient) (*DocumentService, *fakeChunkStore) {
	t.Helper()

	store := &fakeChunkStore{}
	embedder := &fakeEmbedder{vector: []float32{0.5, 0.5, 0.5}}
	chunker := NewChunker(500, 50)

	return NewDocumentService(db, store, embedder, chunker, queueClient), store
}

func TestDocumentServiceUploadDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("上传后状态为pending并入队", func(t *testing.T) {
		db := newIndexerTestDB(t)
		queueClient := &fakeQueueClient{}
		svc, _ := newTestDocumentService(t, db, queueClient)

		doc, err := svc.UploadDocument(ctx, &UploadDocumentRequest{
			TenantID: "tenant-a",
			FileName: "faq.txt",
			FileType: "text/plain",
			Content:  "We open at nine. We close at six.",
			Tags:     []string{"faq"},
		})
		require.NoError(t, err)
		require.Equal(t, "pending", doc.Status)
		require.Equal(t, []string{doc.ID}, queueClient.enqueued)
	})

	t.Run("缺少租户拒绝", func(t *testing.T) {
		db := newIndexerTestDB(t)
		svc, _ := newTestDocumentService(t, db, &fakeQueueClient{})

		_, err := svc.UploadDocument(ctx, &UploadDocumentRequest{
			FileName: "faq.txt",
			Content:  "内容",
		})
		require.ErrorIs(t, err, ErrMissingTenant)
	})

	t.Run("空内容拒绝", func(t *testing.T) {
		db := newIndexerTestDB(t)
		svc, _ := newTestDocumentService(t, db, &fakeQueueClient{})

		_, err := svc.UploadDocument(ctx, &UploadDocumentRequest{
			TenantID: "tenant-a",
			FileName: "faq.txt",
			Content:  "  ",
		})
		require.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestDocumentServiceProcessDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("处理成功后写入分块并标记indexed", func(t *testing.T) {
		db := newIndexerTestDB(t)
		queueClient := &fakeQueueClient{}
		svc, store := newTestDocumentService(t, db, queueClient)

		content := "We open at nine. We close at six. Weekend service is unavailable."
		doc, err := svc.UploadDocument(ctx, &UploadDocumentRequest{
			TenantID: "tenant-a",
			FileName: "faq.txt",
			Content:  content,
		})
		require.NoError(t, err)

		require.NoError(t, svc.ProcessDocument(ctx, doc.ID, content))

		var updated KnowledgeDocument
		require.NoError(t, db.Where("id = ?", doc.ID).First(&updated).Error)
		require.Equal(t, "indexed", updated.Status)
		require.Equal(t, len(store.chunks), updated.ChunkCount)
		require.NotEmpty(t, store.chunks)

		for i, chunk := range store.chunks {
			require.Equal(t, doc.ID, chunk.DocumentID)
			require.Equal(t, "tenant-a", chunk.TenantID)
			require.Equal(t, i, chunk.ChunkIndex)
			require.NotNil(t, chunk.Embedding)
			require.Equal(t, "fake-model", chunk.EmbeddingModel)
		}
	})

	t.Run("向量化失败标记failed", func(t *testing.T) {
		db := newIndexerTestDB(t)
		store := &fakeChunkStore{}
		embedder := &fakeEmbedder{err: fmt.Errorf("%w: 上游不可用", ErrEmbeddingFailure)}
		svc := NewDocumentService(db, store, embedder, NewChunker(500, 50), &fakeQueueClient{})

		doc := &KnowledgeDocument{ID: "doc-1", TenantID: "tenant-a", FileName: "faq.txt", Status: "pending"}
		require.NoError(t, db.Create(doc).Error)

		err := svc.ProcessDocument(ctx, "doc-1", "Some content here.")
		require.ErrorIs(t, err, ErrEmbeddingFailure)

		var updated KnowledgeDocument
		require.NoError(t, db.Where("id = ?", "doc-1").First(&updated).Error)
		require.Equal(t, "failed", updated.Status)
		require.NotEmpty(t, updated.ErrorMessage)
		require.Empty(t, store.chunks)
	})

	t.Run("文档不存在", func(t *testing.T) {
		db := newIndexerTestDB(t)
		svc, _ := newTestDocumentService(t, db, &fakeQueueClient{})

		err := svc.ProcessDocument(ctx, "missing", "内容")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDocumentServiceManagement(t *testing.T) {
	ctx := context.Background()

	t.Run("更新标签", func(t *testing.T) {
		db := newIndexerTestDB(t)
		svc, _ := newTestDocumentService(t, db, &fakeQueueClient{})

		doc := &KnowledgeDocument{ID: "doc-1", TenantID: "tenant-a", FileName: "faq.txt", Status: "indexed"}
		require.NoError(t, db.Create(doc).Error)

		require.NoError(t, svc.UpdateTags(ctx, "doc-1", "tenant-a", []string{"hours", "faq"}))

		var updated KnowledgeDocument
		require.NoError(t, db.Where("id = ?", "doc-1").First(&updated).Error)
		require.Equal(t, []string{"hours", "faq"}, updated.Tags)
	})

	t.Run("跨租户更新标签按不存在处理", func(t *testing.T) {
		db := newIndexerTestDB(t)
		svc, _ := newTestDocumentService(t, db, &fakeQueueClient{})

		doc := &KnowledgeDocument{ID: "doc-1", TenantID: "tenant-a", FileName: "faq.txt", Status: "indexed"}
		require.NoError(t, db.Create(doc).Error)

		err := svc.UpdateTags(ctx, "doc-1", "tenant-b", []string{"x"})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("删除文档清理分块", func(t *testing.T) {
		db := newIndexerTestDB(t)
		svc, store := newTestDocumentService(t, db, &fakeQueueClient{})

		doc := &KnowledgeDocument{ID: "doc-1", TenantID: "tenant-a", FileName: "faq.txt", Status: "indexed"}
		require.NoError(t, db.Create(doc).Error)
		store.chunks = []*KnowledgeChunk{
			{ID: "c1", DocumentID: "doc-1", TenantID: "tenant-a"},
			{ID: "c2", DocumentID: "doc-other", TenantID: "tenant-a"},
		}

		require.NoError(t, svc.DeleteDocument(ctx, "doc-1", "tenant-a"))
		require.Len(t, store.chunks, 1)
		require.Equal(t, "c2", store.chunks[0].ID)

		// 软删除后列表不可见
		docs, err := svc.ListDocuments(ctx, "tenant-a")
		require.NoError(t, err)
		require.Empty(t, docs)
	})

	t.Run("列表只含本租户文档", func(t *testing.T) {
		db := newIndexerTestDB(t)
		svc, _ := newTestDocumentService(t, db, &fakeQueueClient{})

		require.NoError(t, db.Create(&KnowledgeDocument{ID: "a", TenantID: "tenant-a", FileName: "a.txt", Status: "indexed"}).Error)
		require.NoError(t, db.Create(&KnowledgeDocument{ID: "b", TenantID: "tenant-b", FileName: "b.txt", Status: "indexed"}).Error)

		docs, err := svc.ListDocuments(ctx, "tenant-a")
		require.NoError(t, err)
		require.Len(t, docs, 1)
		require.Equal(t, "a", docs[0].ID)
	})
}
