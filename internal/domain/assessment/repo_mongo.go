package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wellcheck/wellcheck/pkg/scoring"
)

const mongoCollection = "assessment_results"

// recordDoc is the MongoDB shape of a Record. The result is stored as a
// nested document so it stays queryable.
type recordDoc struct {
	ID             string    `bson:"_id"`
	UserID         string    `bson:"userId"`
	Kind           string    `bson:"kind"`
	TestCode       string    `bson:"testCode"`
	Score          float64   `bson:"score"`
	MaxScore       float64   `bson:"maxScore"`
	SeverityLevel  string    `bson:"severityLevel,omitempty"`
	SeverityLabel  string    `bson:"severityLabel,omitempty"`
	RiskLevel      string    `bson:"riskLevel"`
	Interpretation string    `bson:"interpretation,omitempty"`
	Result         bson.D    `bson:"result"`
	CreatedAt      time.Time `bson:"createdAt"`
}

func toDoc(rec *Record) (*recordDoc, error) {
	var result bson.D
	if err := bson.UnmarshalExtJSON(rec.Result, false, &result); err != nil {
		return nil, fmt.Errorf("convert result: %w", err)
	}
	return &recordDoc{
		ID:             rec.ID.String(),
		UserID:         rec.UserID,
		Kind:           string(rec.Kind),
		TestCode:       rec.TestCode,
		Score:          rec.Score,
		MaxScore:       rec.MaxScore,
		SeverityLevel:  string(rec.SeverityLevel),
		SeverityLabel:  rec.SeverityLabel,
		RiskLevel:      string(rec.RiskLevel),
		Interpretation: rec.Interpretation,
		Result:         result,
		CreatedAt:      rec.CreatedAt,
	}, nil
}

func (d *recordDoc) record() (*Record, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("record id %q: %w", d.ID, err)
	}
	raw, err := bson.MarshalExtJSON(d.Result, false, false)
	if err != nil {
		return nil, fmt.Errorf("convert result %s: %w", d.ID, err)
	}
	return &Record{
		ID:             id,
		UserID:         d.UserID,
		Kind:           Kind(d.Kind),
		TestCode:       d.TestCode,
		Score:          d.Score,
		MaxScore:       d.MaxScore,
		SeverityLevel:  scoring.SeverityLevel(d.SeverityLevel),
		SeverityLabel:  d.SeverityLabel,
		RiskLevel:      scoring.RiskLevel(d.RiskLevel),
		Interpretation: d.Interpretation,
		Result:         raw,
		CreatedAt:      d.CreatedAt.UTC(),
	}, nil
}

type repoMongo struct {
	results *mongo.Collection
}

func NewRepoMongo(db *mongo.Database) Repository {
	return &repoMongo{results: db.Collection(mongoCollection)}
}

// EnsureIndexes creates the indexes the list queries rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(mongoCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "riskLevel", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create assessment indexes: %w", err)
	}
	return nil
}

func (r *repoMongo) Create(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	doc, err := toDoc(rec)
	if err != nil {
		return err
	}
	if _, err := r.results.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (r *repoMongo) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	var doc recordDoc
	err := r.results.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get assessment %s: %w", id, err)
	}
	return doc.record()
}

func mongoFilter(f Filter) bson.M {
	filter := bson.M{}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.TestCode != "" {
		filter["testCode"] = f.TestCode
	}
	if f.RiskLevel != "" {
		filter["riskLevel"] = string(f.RiskLevel)
	}
	return filter
}

func (r *repoMongo) Search(ctx context.Context, f Filter, limit, offset int) ([]*Record, int, error) {
	return r.find(ctx, mongoFilter(f), limit, offset)
}

func (r *repoMongo) find(ctx context.Context, filter bson.M, limit, offset int) ([]*Record, int, error) {
	total, err := r.results.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	cursor, err := r.results.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var docs []recordDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	items := make([]*Record, 0, len(docs))
	for i := range docs {
		rec, err := docs[i].record()
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, int(total), nil
}
