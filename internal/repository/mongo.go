package repository

import (
	"context"
	"errors"

	apperrors "github.com/umalmyha/customer-records/internal/errors"
	"github.com/umalmyha/customer-records/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const emailUniqueIndex = "email_unique"

type customerDocument struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Name  string             `bson:"name"`
	Email string             `bson:"email"`
	Age   float64            `bson:"age"`
}

func (d *customerDocument) customer() *model.Customer {
	return &model.Customer{
		ID:    d.ID.Hex(),
		Name:  d.Name,
		Email: d.Email,
		Age:   d.Age,
	}
}

type mongoCustomerRepository struct {
	coll *mongo.Collection
}

// NewMongoCustomerRepository builds customer repository on top of mongo collection
func NewMongoCustomerRepository(coll *mongo.Collection) CustomerRepository {
	return &mongoCustomerRepository{coll: coll}
}

// EnsureMongoIndexes creates unique index on email, so uniqueness holds even for concurrent creates
func EnsureMongoIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(emailUniqueIndex),
	})
	if err != nil {
		return apperrors.NewStoreErr("ensure indexes", err)
	}
	return nil
}

func (r *mongoCustomerRepository) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	var doc customerDocument
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, apperrors.NewStoreErr("find by email", err)
	}
	return doc.customer(), nil
}

func (r *mongoCustomerRepository) FindAll(ctx context.Context) ([]*model.Customer, error) {
	cur, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, apperrors.NewStoreErr("find all", err)
	}

	var docs []customerDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, apperrors.NewStoreErr("find all", err)
	}

	customers := make([]*model.Customer, 0, len(docs))
	for i := range docs {
		customers = append(customers, docs[i].customer())
	}
	return customers, nil
}

func (r *mongoCustomerRepository) Create(ctx context.Context, c *model.Customer) error {
	res, err := r.coll.InsertOne(ctx, &customerDocument{
		Name:  c.Name,
		Email: c.Email,
		Age:   c.Age,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.NewConflictErr("email", duplicateEmailMessage)
		}
		return apperrors.NewStoreErr("create", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return apperrors.NewStoreErr("create", errors.New("unexpected type of inserted id"))
	}

	c.ID = oid.Hex()
	return nil
}

func (r *mongoCustomerRepository) UpdateByID(ctx context.Context, id string, patch *model.CustomerPatch) (*model.Customer, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NewStoreErr("update by id", err)
	}

	var res *mongo.SingleResult
	if patch.IsEmpty() {
		res = r.coll.FindOne(ctx, bson.M{"_id": oid})
	} else {
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		res = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": patchDocument(patch)}, opts)
	}

	var doc customerDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, apperrors.NewStoreErr("update by id", err)
	}
	return doc.customer(), nil
}

func (r *mongoCustomerRepository) DeleteByID(ctx context.Context, id string) (*model.Customer, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NewStoreErr("delete by id", err)
	}

	var doc customerDocument
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, apperrors.NewStoreErr("delete by id", err)
	}
	return doc.customer(), nil
}

func patchDocument(patch *model.CustomerPatch) bson.D {
	set := bson.D{}
	if patch.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *patch.Name})
	}

	if patch.Email != nil {
		set = append(set, bson.E{Key: "email", Value: *patch.Email})
	}

	if patch.Age != nil {
		set = append(set, bson.E{Key: "age", Value: *patch.Age})
	}
	return set
}
