package graphql

import (
	"context"
	"log/slog"

	"lavra/internal/delivery/api/validator"
	deliverycontext "lavra/internal/delivery/context"
	"lavra/internal/domain/entity"
	domainerrors "lavra/internal/domain/errors"
	"lavra/internal/usecase"

	"github.com/google/uuid"
	graphqlgo "github.com/graph-gophers/graphql-go"
)

// Resolver is the root resolver for Query and Mutation.
type Resolver struct {
	auth      usecase.AuthUsecase
	profile   usecase.ProfileUsecase
	sessions  usecase.SessionUsecase
	validator *validator.Validator
	logger    *slog.Logger
}

type registerInput struct {
	Email    string
	Password string
	Name     string
	Phone    *string
}

type loginInput struct {
	Email    string
	Password string
}

type updateProfileInput struct {
	Name  *string
	Phone *string
}

// Register resolves Mutation.register.
func (r *Resolver) Register(ctx context.Context, args struct{ RegisterInput registerInput }) (*authResponseResolver, error) {
	input := &usecase.RegisterInput{
		Email:    args.RegisterInput.Email,
		Password: args.RegisterInput.Password,
		Name:     args.RegisterInput.Name,
		Phone:    args.RegisterInput.Phone,
	}
	if err := r.validator.Validate(input); err != nil {
		return nil, r.toResolverError(ctx, err)
	}

	out, err := r.auth.Register(ctx, input)
	if err != nil {
		return nil, r.toResolverError(ctx, err)
	}

	return &authResponseResolver{out: out}, nil
}

// Login resolves Mutation.login.
func (r *Resolver) Login(ctx context.Context, args struct{ LoginInput loginInput }) (*authResponseResolver, error) {
	input := &usecase.LoginInput{
		Email:    args.LoginInput.Email,
		Password: args.LoginInput.Password,
	}
	if err := r.validator.Validate(input); err != nil {
		return nil, r.toResolverError(ctx, err)
	}

	out, err := r.auth.Login(ctx, input)
	if err != nil {
		return nil, r.toResolverError(ctx, err)
	}

	return &authResponseResolver{out: out}, nil
}

// RefreshToken resolves Mutation.refreshToken.
func (r *Resolver) RefreshToken(ctx context.Context, args struct{ Token string }) (*authResponseResolver, error) {
	out, err := r.auth.RefreshToken(ctx, args.Token)
	if err != nil {
		return nil, r.toResolverError(ctx, err)
	}

	return &authResponseResolver{out: out}, nil
}

// Logout resolves Mutation.logout for the authenticated caller.
func (r *Resolver) Logout(ctx context.Context) (bool, error) {
	userID, err := r.requireUser(ctx)
	if err != nil {
		return false, err
	}

	ok, err := r.auth.Logout(ctx, userID)
	if err != nil {
		return false, r.toResolverError(ctx, err)
	}

	return ok, nil
}

// UpdateProfile resolves Mutation.updateProfile for the authenticated caller.
func (r *Resolver) UpdateProfile(ctx context.Context, args struct{ UpdateProfileInput updateProfileInput }) (*userResolver, error) {
	userID, err := r.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	input := &usecase.UpdateProfileInput{
		Name:  args.UpdateProfileInput.Name,
		Phone: args.UpdateProfileInput.Phone,
	}
	if err := r.validator.Validate(input); err != nil {
		return nil, r.toResolverError(ctx, err)
	}

	user, err := r.profile.UpdateProfile(ctx, userID, input)
	if err != nil {
		return nil, r.toResolverError(ctx, err)
	}

	return &userResolver{user: user}, nil
}

// Me resolves Query.me.
func (r *Resolver) Me(ctx context.Context) (*userResolver, error) {
	userID, err := r.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	user, err := r.profile.GetProfile(ctx, userID)
	if err != nil {
		return nil, r.toResolverError(ctx, err)
	}

	return &userResolver{user: user}, nil
}

// Sessions resolves Query.sessions.
func (r *Resolver) Sessions(ctx context.Context) ([]*sessionResolver, error) {
	userID, err := r.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	sessions, err := r.sessions.ListActiveSessions(ctx, userID)
	if err != nil {
		return nil, r.toResolverError(ctx, err)
	}

	resolvers := make([]*sessionResolver, 0, len(sessions))
	for _, s := range sessions {
		resolvers = append(resolvers, &sessionResolver{session: s})
	}

	return resolvers, nil
}

// requireUser returns the identity attached by the auth middleware.
func (r *Resolver) requireUser(ctx context.Context) (uuid.UUID, error) {
	userID, ok := deliverycontext.GetUserID(ctx)
	if !ok {
		return uuid.Nil, r.toResolverError(ctx, domainerrors.ErrUnauthenticated)
	}

	return userID, nil
}

type authResponseResolver struct {
	out *usecase.AuthOutput
}

func (a *authResponseResolver) AccessToken() string {
	return a.out.AccessToken
}

func (a *authResponseResolver) RefreshToken() string {
	return a.out.RefreshToken
}

func (a *authResponseResolver) User() *userResolver {
	return &userResolver{user: a.out.User}
}

type userResolver struct {
	user *entity.User
}

func (u *userResolver) ID() graphqlgo.ID {
	return graphqlgo.ID(u.user.ID.String())
}

func (u *userResolver) Email() string {
	return u.user.Email
}

func (u *userResolver) Name() string {
	return u.user.Name
}

func (u *userResolver) Phone() *string {
	return u.user.Phone
}

func (u *userResolver) Role() string {
	return u.user.Role.String()
}

func (u *userResolver) Status() string {
	return u.user.Status.String()
}

func (u *userResolver) CreatedAt() graphqlgo.Time {
	return graphqlgo.Time{Time: u.user.CreatedAt}
}

func (u *userResolver) UpdatedAt() graphqlgo.Time {
	return graphqlgo.Time{Time: u.user.UpdatedAt}
}

type sessionResolver struct {
	session *entity.SessionInfo
}

func (s *sessionResolver) ID() graphqlgo.ID {
	return graphqlgo.ID(s.session.ID.String())
}

func (s *sessionResolver) CreatedAt() graphqlgo.Time {
	return graphqlgo.Time{Time: s.session.CreatedAt}
}

func (s *sessionResolver) ExpiresAt() graphqlgo.Time {
	return graphqlgo.Time{Time: s.session.ExpiresAt}
}
