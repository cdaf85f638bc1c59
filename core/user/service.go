package user

import (
	"context"
	"crypto/rand"
	"math/big"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kita/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user")
	ErrChildNotFound      = core.NewNotFoundError("child")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrInvalidCode        = errors.New("invalid registration code")
	ErrDeleteSelf         = errors.New("you cannot delete your own account here")

	errNoChildren   = "at least one child is required"
	errUnknownGroup = "unknown group"

	tempPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"
	tempPasswordLen      = 12
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

		CreateChildren(ctx context.Context, children []Child, exec ...core.DBExecutor) ([]Child, error)
		GetChild(ctx context.Context, id string, exec ...core.DBExecutor) (Child, error)
		QueryChildren(ctx context.Context, filter ChildFilter, exec ...core.DBExecutor) ([]Child, error)
		UpdateChild(ctx context.Context, child Child, exec ...core.DBExecutor) (Child, error)
		DeleteChildren(ctx context.Context, filter ChildFilter, exec ...core.DBExecutor) (int, error)
	}

	// GroupDirectory knows the facility groups.
	GroupDirectory interface {
		GroupExists(ctx context.Context, id string) (bool, error)
		// DefaultGroupID returns the first regular (non-event) group, or "" when there is none.
		DefaultGroupID(ctx context.Context) (string, error)
	}

	// CodeValidator checks registration codes (one code per role).
	CodeValidator interface {
		ValidateCode(ctx context.Context, code, role string) (bool, error)
	}

	ServiceDeps struct {
		Conf    *core.Config
		Repo    Repository
		Tx      core.Transactor
		Groups  GroupDirectory
		Codes   CodeValidator
		MailSvc core.EmailService
	}

	Service struct {
		facilityID string
		repo       Repository
		tx         core.Transactor
		groups     GroupDirectory
		codes      CodeValidator
		mailSvc    core.EmailService
	}
)

func NewService(deps ServiceDeps) *Service {
	secretKey = []byte(deps.Conf.SecretKey)
	passwordResetTimeoutDelta = deps.Conf.PasswordResetTimeout
	return &Service{
		facilityID: deps.Conf.FacilityID,
		repo:       deps.Repo,
		tx:         deps.Tx,
		groups:     deps.Groups,
		codes:      deps.Codes,
		mailSvc:    deps.MailSvc,
	}
}

// Groups exposes the group directory used to validate group references.
func (svc *Service) Groups() GroupDirectory { return svc.groups }

func (svc *Service) checkEmailUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

// Register signs a new User up with the registration code of their role.
// Parents register their children at the same time; team members get the first regular group as primary group.
func (svc *Service) Register(ctx context.Context, reg Registration) (User, error) {
	ok, err := svc.codes.ValidateCode(ctx, reg.Code, reg.Role)
	if err != nil {
		return User{}, errors.Wrap(err, "validating registration code")
	}
	if !ok {
		return User{}, core.NewValidationError(ErrInvalidCode, core.FieldError{Field: "code", Error: ErrInvalidCode.Error()})
	}
	if err = svc.checkEmailUniqueness(ctx, reg.Email); err != nil {
		return User{}, err
	}

	now := core.NowFunc().UTC()
	usr := User{
		Email:      reg.Email,
		FullName:   reg.Name,
		Role:       reg.Role,
		FacilityID: svc.facilityID,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if usr.IsStaff() {
		if usr.PrimaryGroup, err = svc.groups.DefaultGroupID(ctx); err != nil {
			return User{}, errors.Wrap(err, "finding default group")
		}
	}
	if err = usr.SetPassword(reg.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		if usr, err = svc.repo.CreateUser(ctx, usr, exec); err != nil {
			return errors.Wrap(err, "creating user")
		}
		if len(reg.Children) == 0 {
			return nil
		}
		children := make([]Child, 0, len(reg.Children))
		for _, nc := range reg.Children {
			children = append(children, svc.newChild(usr, nc, now))
		}
		if usr.Children, err = svc.repo.CreateChildren(ctx, children, exec); err != nil {
			return errors.Wrap(err, "creating children")
		}
		return nil
	})
	return usr, err
}

func (svc *Service) newChild(parent User, nc NewChild, now time.Time) Child {
	return Child{
		FirstName:  nc.FirstName,
		Birthday:   nc.Birthday,
		Notes:      nc.Notes,
		GroupID:    nc.GroupID,
		UserID:     parent.ID,
		FacilityID: svc.facilityID,
		CreatedAt:  now,
	}
}

// Authenticate checks the credentials of a User and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	return svc.SetLastLogin(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = core.NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

// Me returns the User with their children.
func (svc *Service) Me(ctx context.Context, id string) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if usr.Children, err = svc.ListChildren(ctx, usr.ID); err != nil {
		return User{}, errors.Wrap(err, "querying children")
	}
	return usr, nil
}

func (svc *Service) UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error) {
	if up.FullName != "" {
		usr.FullName = up.FullName
	}
	if up.PrimaryGroup != nil {
		if !usr.IsStaff() {
			return User{}, core.ErrPermissionDenied
		}
		usr.PrimaryGroup = *up.PrimaryGroup
	}
	usr.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) ChangePassword(ctx context.Context, usr User, cp ChangePassword) error {
	if err := usr.SetPassword(cp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = core.NowFunc().UTC()
	_, err := svc.repo.UpdateUser(ctx, usr)
	return err
}

// ForceReset replaces the temporary password of a User and clears their reset flag.
func (svc *Service) ForceReset(ctx context.Context, usr User, fr ForceResetPassword) (User, error) {
	if err := usr.SetPassword(fr.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.MustResetPassword = false
	usr.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *Service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      "Passwort zurücksetzen",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":  usr.FullName,
			"UID":   EncodeUID(usr),
			"Token": makeToken(usr),
		},
	})
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	invalidErr := core.NewValidationError(errInvalidToken, core.FieldError{Field: "token", Error: errInvalidToken.Error()})
	uid, err := decodeUID(rp.UID)
	if err != nil {
		return invalidErr
	}
	usr, err := svc.GetByID(ctx, uid)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return invalidErr
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.MustResetPassword = false
	usr.UpdatedAt = core.NowFunc().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

// DeleteAccount deletes the children of a User, then the User.
func (svc *Service) DeleteAccount(ctx context.Context, usr User) error {
	return svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.DeleteChildren(ctx, ChildFilter{UserIDs: []string{usr.ID}}, exec); err != nil {
			return errors.Wrap(err, "deleting children")
		}
		if _, err := svc.repo.DeleteUsersByID(ctx, []string{usr.ID}, exec); err != nil {
			return errors.Wrap(err, "deleting user")
		}
		return nil
	})
}

// Children

func (svc *Service) ListChildren(ctx context.Context, userID string) ([]Child, error) {
	return svc.repo.QueryChildren(ctx, ChildFilter{UserIDs: []string{userID}})
}

func (svc *Service) GetChild(ctx context.Context, id string) (Child, error) {
	return svc.repo.GetChild(ctx, id)
}

// getOwnChild returns the child if actor is its parent or an admin.
func (svc *Service) getOwnChild(ctx context.Context, actor User, id string) (Child, error) {
	child, err := svc.repo.GetChild(ctx, id)
	if err != nil {
		return Child{}, err
	}
	if child.UserID != actor.ID && !actor.IsAdmin() {
		return Child{}, ErrChildNotFound
	}
	return child, nil
}

func (svc *Service) AddChild(ctx context.Context, actor User, nc NewChild) (Child, error) {
	if !actor.IsParent() {
		return Child{}, core.ErrPermissionDenied
	}
	children, err := svc.repo.CreateChildren(ctx, []Child{svc.newChild(actor, nc, core.NowFunc().UTC())})
	if err != nil {
		return Child{}, errors.Wrap(err, "creating child")
	}
	return children[0], nil
}

func (svc *Service) UpdateChild(ctx context.Context, actor User, id string, uc UpdateChild) (Child, error) {
	child, err := svc.getOwnChild(ctx, actor, id)
	if err != nil {
		return Child{}, err
	}
	if uc.FirstName != "" {
		child.FirstName = uc.FirstName
	}
	if uc.GroupID != "" {
		child.GroupID = uc.GroupID
	}
	if uc.Birthday != nil {
		child.Birthday = *uc.Birthday
	}
	if uc.Notes != nil {
		child.Notes = core.CleanString(*uc.Notes)
	}
	return svc.repo.UpdateChild(ctx, child)
}

func (svc *Service) DeleteChild(ctx context.Context, actor User, id string) error {
	child, err := svc.getOwnChild(ctx, actor, id)
	if err != nil {
		return err
	}
	_, err = svc.repo.DeleteChildren(ctx, ChildFilter{IDs: []string{child.ID}})
	return err
}

// BirthdaysToday returns the children of a team member's primary group whose birthday is today.
func (svc *Service) BirthdaysToday(ctx context.Context, viewer User) ([]Child, error) {
	if !viewer.IsTeam() || viewer.PrimaryGroup == "" {
		return []Child{}, nil
	}
	children, err := svc.repo.QueryChildren(ctx, ChildFilter{GroupIDs: []string{viewer.PrimaryGroup}})
	if err != nil {
		return nil, errors.Wrap(err, "querying children")
	}
	today := core.Today()
	bdays := make([]Child, 0)
	for _, c := range children {
		if c.HasBirthdayOn(today) {
			bdays = append(bdays, c)
		}
	}
	return bdays, nil
}

// Admin

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

// Create lets an admin create a User with a temporary password that must be replaced at first login.
// The temporary password is sent to the User by email.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.checkEmailUniqueness(ctx, nu.Email); err != nil {
		return User{}, err
	}
	pwd, err := generateTempPassword()
	if err != nil {
		return User{}, errors.Wrap(err, "generating temporary password")
	}

	now := core.NowFunc().UTC()
	usr := User{
		Email:             nu.Email,
		FullName:          nu.FullName,
		Role:              nu.Role,
		PrimaryGroup:      nu.PrimaryGroup,
		FacilityID:        svc.facilityID,
		MustResetPassword: true,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	if usr, err = svc.repo.CreateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      "Dein Zugang",
		TemplateName: "welcome",
		TemplateData: map[string]string{
			"Name":     usr.FullName,
			"Email":    usr.Email,
			"Password": pwd,
		},
	})
	return usr, nil
}

func (svc *Service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	if uu.FullName != "" {
		usr.FullName = uu.FullName
	}
	if uu.Role != "" {
		usr.Role = uu.Role
	}
	if uu.PrimaryGroup != nil {
		usr.PrimaryGroup = *uu.PrimaryGroup
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	usr.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// Delete removes Users and their children. Admins cannot delete themselves this way.
func (svc *Service) Delete(ctx context.Context, actor User, ids ...string) error {
	for _, id := range ids {
		if id == actor.ID {
			return core.NewValidationError(ErrDeleteSelf)
		}
	}
	return svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.DeleteChildren(ctx, ChildFilter{UserIDs: ids}, exec); err != nil {
			return errors.Wrap(err, "deleting children")
		}
		if _, err := svc.repo.DeleteUsersByID(ctx, ids, exec); err != nil {
			return errors.Wrap(err, "deleting users")
		}
		return nil
	})
}

func generateTempPassword() (string, error) {
	max := big.NewInt(int64(len(tempPasswordAlphabet)))
	pwd := make([]byte, tempPasswordLen)
	for i := range pwd {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		pwd[i] = tempPasswordAlphabet[n.Int64()]
	}
	return string(pwd), nil
}
