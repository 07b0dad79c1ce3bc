package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	sharedInfraEvents "github.com/davicafu/ordelab/internal/shared/infra/events"
)

// DeadLetterRepoMongoDB guarda los mensajes descartados por los consumidores
// en una colección de MongoDB, para inspección y reproceso manual.
type DeadLetterRepoMongoDB struct {
	coll *mongo.Collection
}

func NewDeadLetterRepoMongoDB(client *mongo.Client, dbName string) *DeadLetterRepoMongoDB {
	coll := client.Database(dbName).Collection("dead_letters")
	return &DeadLetterRepoMongoDB{coll: coll}
}

// deadLetterDoc es un helper para mapear los documentos de la colección.
type deadLetterDoc struct {
	ID          uuid.UUID `bson:"_id"`
	Topic       string    `bson:"topic"`
	Payload     []byte    `bson:"payload"`
	Reason      string    `bson:"reason"`
	StoredAt    time.Time `bson:"storedAt"`
	Reprocessed bool      `bson:"reprocessed"`
}

// Store inserta el mensaje descartado con su motivo.
func (r *DeadLetterRepoMongoDB) Store(ctx context.Context, topic string, payload []byte, reason string) error {
	doc := deadLetterDoc{
		ID:       uuid.New(),
		Topic:    topic,
		Payload:  payload,
		Reason:   reason,
		StoredAt: time.Now().UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("dead-letter insert failed: %w", err)
	}
	return nil
}

// FetchUnprocessed devuelve los mensajes aún sin reprocesar, de más antiguo a
// más reciente.
func (r *DeadLetterRepoMongoDB) FetchUnprocessed(ctx context.Context, limit int) ([]DeadLetter, error) {
	filter := bson.M{"reprocessed": false}
	opts := options.Find().SetSort(bson.D{{Key: "storedAt", Value: 1}}).SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []DeadLetter
	for cursor.Next(ctx) {
		var doc deadLetterDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, DeadLetter{
			ID:       doc.ID,
			Topic:    doc.Topic,
			Payload:  doc.Payload,
			Reason:   doc.Reason,
			StoredAt: doc.StoredAt,
		})
	}
	return out, cursor.Err()
}

// MarkReprocessed marca un mensaje como reprocesado.
func (r *DeadLetterRepoMongoDB) MarkReprocessed(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"reprocessed": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("dead letter not found: %s", id)
	}
	return nil
}

// DeadLetter es la vista de dominio de un mensaje descartado.
type DeadLetter struct {
	ID       uuid.UUID
	Topic    string
	Payload  []byte
	Reason   string
	StoredAt time.Time
}

// Verificación en tiempo de compilación.
var _ sharedInfraEvents.DeadLetterSink = (*DeadLetterRepoMongoDB)(nil)
