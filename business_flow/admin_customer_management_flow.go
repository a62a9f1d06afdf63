package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amirphl/safs-storefront/app/dto"
	"github.com/amirphl/safs-storefront/app/services"
	"github.com/amirphl/safs-storefront/models"
	"github.com/amirphl/safs-storefront/repository"
	"github.com/amirphl/safs-storefront/utils"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const filterAll = "all"

// AdminCustomerManagementFlow exposes admin customer management use cases
type AdminCustomerManagementFlow interface {
	ListCustomers(ctx context.Context, req *dto.ListCustomersRequest) (*dto.ListCustomersResponse, error)
	ExportCustomers(ctx context.Context, req *dto.ListCustomersRequest) (*dto.CustomerExport, error)
	CreateCustomer(ctx context.Context, actor Actor, req *dto.CreateCustomerRequest) (*dto.CreateCustomerResponse, error)
	UpdateCustomerStatus(ctx context.Context, actor Actor, customerID string, req *dto.UpdateCustomerStatusRequest) (*dto.MessageResponse, error)
	UpdateCustomer(ctx context.Context, actor Actor, customerID string, req *dto.UpdateCustomerRequest) (*dto.APIResponse, error)
	UpdateCustomerRole(ctx context.Context, actor Actor, customerID string, req *dto.UpdateCustomerRoleRequest) (*dto.MessageResponse, error)
	DeleteCustomer(ctx context.Context, actor Actor, customerID string) (*dto.MessageResponse, error)
	BulkUpdateStatus(ctx context.Context, actor Actor, req *dto.BulkUpdateStatusRequest) (*dto.BulkUpdateResponse, error)
	BulkDelete(ctx context.Context, actor Actor, req *dto.BulkDeleteRequest) (*dto.BulkDeleteResponse, error)
	IssuePasswordReset(ctx context.Context, actor Actor, customerID string) (*dto.PasswordResetTokenResponse, error)
}

// AdminCustomerManagementFlowImpl implements AdminCustomerManagementFlow
type AdminCustomerManagementFlowImpl struct {
	accountRepo  repository.AccountRepository
	transactor   repository.Transactor
	tokenService services.TokenService
	locker       services.Locker
}

func NewAdminCustomerManagementFlow(
	accountRepo repository.AccountRepository,
	transactor repository.Transactor,
	tokenService services.TokenService,
	locker services.Locker,
) AdminCustomerManagementFlow {
	if locker == nil {
		locker = services.NewLocalLocker()
	}
	return &AdminCustomerManagementFlowImpl{
		accountRepo:  accountRepo,
		transactor:   transactor,
		tokenService: tokenService,
		locker:       locker,
	}
}

func customerListFilter(req *dto.ListCustomersRequest) (models.AccountFilter, error) {
	filter := models.AccountFilter{Role: utils.ToPtr(models.RoleCustomer)}
	if req == nil {
		return filter, nil
	}

	switch status := strings.TrimSpace(req.Status); status {
	case "", filterAll:
	default:
		if !models.IsValidStatus(status) {
			return filter, ErrInvalidStatus
		}
		filter.Status = utils.ToPtr(status)
	}

	switch role := strings.TrimSpace(req.Role); role {
	case "":
	case filterAll:
		filter.Role = nil
	default:
		if !models.IsValidRole(role) {
			return filter, ErrInvalidRole
		}
		filter.Role = utils.ToPtr(role)
	}

	if search := strings.TrimSpace(req.Search); search != "" {
		filter.Search = utils.ToPtr(search)
	}
	return filter, nil
}

// ListCustomers returns matching accounts, newest first. Without a role filter only customers are listed.
func (f *AdminCustomerManagementFlowImpl) ListCustomers(ctx context.Context, req *dto.ListCustomersRequest) (*dto.ListCustomersResponse, error) {
	filter, err := customerListFilter(req)
	if err != nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Invalid customer filter", err)
	}

	accounts, err := f.accountRepo.ByFilter(ctx, filter, "created_at DESC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("LIST_CUSTOMERS_FAILED", "Failed to fetch customers", err)
	}

	customers := make([]dto.CustomerDTO, 0, len(accounts))
	for _, a := range accounts {
		customers = append(customers, ToCustomerDTO(*a))
	}

	return &dto.ListCustomersResponse{
		Success:   true,
		Customers: customers,
		Count:     len(customers),
	}, nil
}

var customerExportHeader = []any{
	"ID", "Email", "Company Name", "Contact Person", "Phone", "Address",
	"Role", "Status", "Status Reason", "Has Password", "Created At", "Last Login",
}

// ExportCustomers renders the same listing as ListCustomers into an Excel workbook
func (f *AdminCustomerManagementFlowImpl) ExportCustomers(ctx context.Context, req *dto.ListCustomersRequest) (*dto.CustomerExport, error) {
	list, err := f.ListCustomers(ctx, req)
	if err != nil {
		return nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	const sheet = "Customers"
	xl.SetSheetName(xl.GetSheetName(0), sheet)
	if err := xl.SetSheetRow(sheet, "A1", &customerExportHeader); err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	for i, c := range list.Customers {
		lastLogin := ""
		if c.LastLogin != nil {
			lastLogin = c.LastLogin.UTC().Format("2006-01-02 15:04:05")
		}
		record := []any{
			c.ID,
			c.Email,
			c.CompanyName,
			c.ContactPerson,
			c.Phone,
			c.Address,
			c.Role,
			c.Status,
			c.StatusReason,
			c.HasPassword,
			c.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			lastLogin,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(sheet, cellRef, &record); err != nil {
			return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	adminCustomerActionsTotal.WithLabelValues("export").Inc()
	return &dto.CustomerExport{
		Filename: fmt.Sprintf("customers_%s.xlsx", utils.UTCNow().Format("20060102")),
		Content:  buf.Bytes(),
	}, nil
}

// CreateCustomer provisions an account without a password. It defaults to approved
// because an admin vouched for it.
func (f *AdminCustomerManagementFlowImpl) CreateCustomer(ctx context.Context, actor Actor, req *dto.CreateCustomerRequest) (*dto.CreateCustomerResponse, error) {
	if req == nil || utils.IsBlank(req.Email) || utils.IsBlank(req.CompanyName) ||
		utils.IsBlank(req.ContactPerson) || utils.IsBlank(req.Phone) {
		return nil, NewBusinessError("VALIDATION_ERROR", "Missing required fields", ErrMissingRequiredFields)
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = models.StatusApproved
	}
	if !models.IsValidStatus(status) {
		return nil, NewBusinessError("VALIDATION_ERROR", "Valid status required (approved, declined, pending)", ErrInvalidStatus)
	}

	email := utils.NormalizeEmail(req.Email)
	existing, err := f.accountRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("CREATE_CUSTOMER_FAILED", "Operation failed", err)
	}
	if existing != nil {
		return nil, NewBusinessError("EMAIL_ALREADY_EXISTS", "Email already exists", ErrEmailAlreadyExists)
	}

	addedBy := actor.AccountID
	account := &models.Account{
		Email:         email,
		PasswordHash:  "",
		Role:          models.RoleCustomer,
		Status:        status,
		CompanyName:   strings.TrimSpace(req.CompanyName),
		ContactPerson: strings.TrimSpace(req.ContactPerson),
		Phone:         utils.NormalizePhone(req.Phone),
		Address:       strings.TrimSpace(req.Address),
		AddedBy:       &addedBy,
		CreatedAt:     utils.UTCNow(),
	}
	if err := f.accountRepo.Save(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, NewBusinessError("EMAIL_ALREADY_EXISTS", "Email already exists", ErrEmailAlreadyExists)
		}
		return nil, NewBusinessError("CREATE_CUSTOMER_FAILED", "Operation failed", err)
	}

	adminCustomerActionsTotal.WithLabelValues("create").Inc()
	return &dto.CreateCustomerResponse{
		Success:    true,
		Message:    "Customer added successfully",
		CustomerID: account.ID.String(),
	}, nil
}

// UpdateCustomerStatus moderates a customer. Admin accounts never match.
func (f *AdminCustomerManagementFlowImpl) UpdateCustomerStatus(ctx context.Context, actor Actor, customerID string, req *dto.UpdateCustomerStatusRequest) (*dto.MessageResponse, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, NewBusinessError("VALIDATION_ERROR", "Customer ID required", ErrInvalidCustomerID)
	}
	if req == nil || !models.IsValidStatus(req.Status) {
		return nil, NewBusinessError("VALIDATION_ERROR", "Valid status required (approved, declined, pending)", ErrInvalidStatus)
	}

	id, ok := parseAccountID(customerID)
	if !ok {
		return nil, NewBusinessError("CUSTOMER_NOT_FOUND", "Customer not found", ErrCustomerNotFound)
	}

	updatedBy := actor.AccountID
	update := models.AccountUpdate{
		Status:    utils.ToPtr(req.Status),
		UpdatedAt: utils.UTCNowPtr(),
		UpdatedBy: &updatedBy,
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		update.StatusReason = &reason
	}

	matched, err := f.accountRepo.UpdateFields(ctx, models.AccountFilter{
		ID:   &id,
		Role: utils.ToPtr(models.RoleCustomer),
	}, update)
	if err != nil {
		return nil, NewBusinessError("UPDATE_CUSTOMER_FAILED", "Update failed", err)
	}
	if matched == 0 {
		return nil, NewBusinessError("CUSTOMER_NOT_FOUND", "Customer not found", ErrCustomerNotFound)
	}

	adminCustomerActionsTotal.WithLabelValues("status_" + req.Status).Inc()
	return &dto.MessageResponse{
		Success: true,
		Message: fmt.Sprintf("Customer %s successfully", req.Status),
	}, nil
}

// UpdateCustomer edits profile fields of any account
func (f *AdminCustomerManagementFlowImpl) UpdateCustomer(ctx context.Context, actor Actor, customerID string, req *dto.UpdateCustomerRequest) (*dto.APIResponse, error) {
	id, ok := parseAccountID(customerID)
	if !ok {
		return nil, NewBusinessError("CUSTOMER_NOT_FOUND", "Customer not found", ErrCustomerNotFound)
	}
	if req == nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Missing required fields", ErrMissingRequiredFields)
	}

	updatedBy := actor.AccountID
	update := models.AccountUpdate{
		UpdatedAt: utils.UTCNowPtr(),
		UpdatedBy: &updatedBy,
	}
	for _, field := range []*string{req.CompanyName, req.ContactPerson, req.Email, req.Phone} {
		if field != nil && utils.IsBlank(*field) {
			return nil, NewBusinessError("VALIDATION_ERROR", "Missing required fields", ErrMissingRequiredFields)
		}
	}
	if req.CompanyName != nil {
		update.CompanyName = utils.ToPtr(strings.TrimSpace(*req.CompanyName))
	}
	if req.ContactPerson != nil {
		update.ContactPerson = utils.ToPtr(strings.TrimSpace(*req.ContactPerson))
	}
	if req.Email != nil {
		update.Email = utils.ToPtr(utils.NormalizeEmail(*req.Email))
	}
	if req.Phone != nil {
		update.Phone = utils.ToPtr(utils.NormalizePhone(*req.Phone))
	}
	if req.Address != nil {
		update.Address = utils.ToPtr(strings.TrimSpace(*req.Address))
	}
	if req.Status != nil {
		if !models.IsValidStatus(*req.Status) {
			return nil, NewBusinessError("VALIDATION_ERROR", "Valid status required (approved, declined, pending)", ErrInvalidStatus)
		}
		update.Status = req.Status
	}

	var updated *models.Account
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		account, err := f.accountRepo.ByID(txCtx, id)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrCustomerNotFound
		}

		if update.Email != nil && *update.Email != account.Email {
			other, err := f.accountRepo.ByEmail(txCtx, *update.Email)
			if err != nil {
				return err
			}
			if other != nil {
				return ErrEmailAlreadyExists
			}
		}

		if _, err := f.accountRepo.UpdateFields(txCtx, models.AccountFilter{ID: &id}, update); err != nil {
			return err
		}
		update.Apply(account)
		updated = account
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrCustomerNotFound):
			return nil, NewBusinessError("CUSTOMER_NOT_FOUND", "Customer not found", err)
		case errors.Is(err, ErrEmailAlreadyExists), errors.Is(err, repository.ErrDuplicateEmail):
			return nil, NewBusinessError("EMAIL_ALREADY_EXISTS", "Email already exists", ErrEmailAlreadyExists)
		}
		return nil, NewBusinessError("UPDATE_CUSTOMER_FAILED", "Update failed", err)
	}

	adminCustomerActionsTotal.WithLabelValues("update").Inc()
	return &dto.APIResponse{
		Success: true,
		Message: "Customer updated successfully",
		Data:    ToCustomerDTO(*updated),
	}, nil
}

// UpdateCustomerRole promotes or demotes an account. The caller cannot change their
// own role and the last admin cannot be demoted.
func (f *AdminCustomerManagementFlowImpl) UpdateCustomerRole(ctx context.Context, actor Actor, customerID string, req *dto.UpdateCustomerRoleRequest) (*dto.MessageResponse, error) {
	if req == nil || !models.IsValidRole(req.Role) {
		return nil, NewBusinessError("VALIDATION_ERROR", "Valid role required (customer, admin)", ErrInvalidRole)
	}
	id, ok := parseAccountID(customerID)
	if !ok {
		return nil, NewBusinessError("CUSTOMER_NOT_FOUND", "Customer not found", ErrCustomerNotFound)
	}
	if id == actor.AccountID {
		return nil, NewBusinessError("CANNOT_MODIFY_SELF", "You cannot change your own role", ErrCannotModifySelf)
	}

	err := f.withAdminRoster(ctx, func(txCtx context.Context) error {
		account, err := f.accountRepo.ByID(txCtx, id)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrCustomerNotFound
		}
		if account.Role == req.Role {
			return nil
		}
		if err := f.ensureNotLastAdmin(txCtx, account); err != nil {
			return err
		}

		updatedBy := actor.AccountID
		update := models.AccountUpdate{
			Role:      utils.ToPtr(req.Role),
			UpdatedAt: utils.UTCNowPtr(),
			UpdatedBy: &updatedBy,
		}
		// Promoted accounts pass the approval gate through their role; keep the stored status coherent
		if req.Role == models.RoleAdmin {
			update.Status = utils.ToPtr(models.StatusApproved)
		}
		_, err = f.accountRepo.UpdateFields(txCtx, models.AccountFilter{ID: &id}, update)
		return err
	})
	if err != nil {
		return nil, customerMutationError(err)
	}

	adminCustomerActionsTotal.WithLabelValues("role_" + req.Role).Inc()
	return &dto.MessageResponse{
		Success: true,
		Message: fmt.Sprintf("Role changed to %s successfully", req.Role),
	}, nil
}

// DeleteCustomer removes an account. The caller cannot delete themselves or the last admin.
func (f *AdminCustomerManagementFlowImpl) DeleteCustomer(ctx context.Context, actor Actor, customerID string) (*dto.MessageResponse, error) {
	id, ok := parseAccountID(customerID)
	if !ok {
		return nil, NewBusinessError("CUSTOMER_NOT_FOUND", "Customer not found", ErrCustomerNotFound)
	}
	if id == actor.AccountID {
		return nil, NewBusinessError("CANNOT_MODIFY_SELF", "You cannot delete your own account", ErrCannotModifySelf)
	}

	err := f.withAdminRoster(ctx, func(txCtx context.Context) error {
		account, err := f.accountRepo.ByID(txCtx, id)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrCustomerNotFound
		}
		if err := f.ensureNotLastAdmin(txCtx, account); err != nil {
			return err
		}
		deleted, err := f.accountRepo.DeleteByFilter(txCtx, models.AccountFilter{ID: &id})
		if err != nil {
			return err
		}
		if deleted == 0 {
			return ErrCustomerNotFound
		}
		return nil
	})
	if err != nil {
		return nil, customerMutationError(err)
	}

	adminCustomerActionsTotal.WithLabelValues("delete").Inc()
	return &dto.MessageResponse{
		Success: true,
		Message: "Customer deleted successfully",
	}, nil
}

// BulkUpdateStatus moderates several customers. Admin accounts in the selection are skipped.
func (f *AdminCustomerManagementFlowImpl) BulkUpdateStatus(ctx context.Context, actor Actor, req *dto.BulkUpdateStatusRequest) (*dto.BulkUpdateResponse, error) {
	if req == nil || !models.IsValidStatus(req.Status) {
		return nil, NewBusinessError("VALIDATION_ERROR", "Valid status required (approved, declined, pending)", ErrInvalidStatus)
	}
	ids, err := f.bulkSelection(req.CustomerIDs)
	if err != nil {
		return nil, err
	}

	updatedBy := actor.AccountID
	update := models.AccountUpdate{
		Status:    utils.ToPtr(req.Status),
		UpdatedAt: utils.UTCNowPtr(),
		UpdatedBy: &updatedBy,
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		update.StatusReason = &reason
	}

	updated, err := f.accountRepo.UpdateFields(ctx, models.AccountFilter{
		IDs:  ids,
		Role: utils.ToPtr(models.RoleCustomer),
	}, update)
	if err != nil {
		return nil, NewBusinessError("BULK_UPDATE_FAILED", "Update failed", err)
	}

	adminCustomerActionsTotal.WithLabelValues("bulk_status_" + req.Status).Inc()
	return &dto.BulkUpdateResponse{
		Success:      true,
		Message:      fmt.Sprintf("%d customers %s", updated, req.Status),
		UpdatedCount: updated,
	}, nil
}

// BulkDelete removes several customers. Admin accounts in the selection are skipped.
func (f *AdminCustomerManagementFlowImpl) BulkDelete(ctx context.Context, actor Actor, req *dto.BulkDeleteRequest) (*dto.BulkDeleteResponse, error) {
	if req == nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "No customers selected", ErrNoCustomersSelected)
	}
	ids, err := f.bulkSelection(req.CustomerIDs)
	if err != nil {
		return nil, err
	}

	deleted, err := f.accountRepo.DeleteByFilter(ctx, models.AccountFilter{
		IDs:  ids,
		Role: utils.ToPtr(models.RoleCustomer),
	})
	if err != nil {
		return nil, NewBusinessError("BULK_DELETE_FAILED", "Operation failed", err)
	}

	adminCustomerActionsTotal.WithLabelValues("bulk_delete").Inc()
	return &dto.BulkDeleteResponse{
		Success:      true,
		Message:      fmt.Sprintf("%d customers deleted", deleted),
		DeletedCount: deleted,
	}, nil
}

// IssuePasswordReset hands the admin a single-use token for the account holder
func (f *AdminCustomerManagementFlowImpl) IssuePasswordReset(ctx context.Context, actor Actor, customerID string) (*dto.PasswordResetTokenResponse, error) {
	id, ok := parseAccountID(customerID)
	if !ok {
		return nil, NewBusinessError("CUSTOMER_NOT_FOUND", "Customer not found", ErrCustomerNotFound)
	}

	account, err := f.accountRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_RESET_FAILED", "Operation failed", err)
	}
	if account == nil {
		return nil, NewBusinessError("CUSTOMER_NOT_FOUND", "Customer not found", ErrCustomerNotFound)
	}

	token, expiresAt, err := f.tokenService.IssuePasswordResetToken(account.ID, account.Email, account.PasswordHash)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_RESET_FAILED", "Operation failed", err)
	}

	adminCustomerActionsTotal.WithLabelValues("password_reset").Inc()
	return &dto.PasswordResetTokenResponse{
		Success:    true,
		ResetToken: token,
		ExpiresAt:  expiresAt,
	}, nil
}

func (f *AdminCustomerManagementFlowImpl) bulkSelection(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, NewBusinessError("VALIDATION_ERROR", "No customers selected", ErrNoCustomersSelected)
	}
	if len(raw) > utils.MaxBulkOperationSize {
		return nil, NewBusinessErrorf("VALIDATION_ERROR", "At most %d customers can be selected", ErrTooManyCustomers, utils.MaxBulkOperationSize)
	}
	ids, err := parseAccountIDs(raw)
	if err != nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Invalid customer ID", err)
	}
	return ids, nil
}

// withAdminRoster runs fn in a transaction while holding the lock the admin bootstrap takes,
// so two concurrent demotions cannot both observe a second admin
func (f *AdminCustomerManagementFlowImpl) withAdminRoster(ctx context.Context, fn func(context.Context) error) error {
	unlock, err := f.locker.Lock(ctx, adminRosterLockKey)
	if err != nil {
		return err
	}
	defer unlock()
	return f.transactor.WithTransaction(ctx, fn)
}

// ensureNotLastAdmin must run inside withAdminRoster
func (f *AdminCustomerManagementFlowImpl) ensureNotLastAdmin(ctx context.Context, account *models.Account) error {
	if !account.IsAdmin() {
		return nil
	}
	admins, err := f.accountRepo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func customerMutationError(err error) error {
	switch {
	case errors.Is(err, ErrCustomerNotFound):
		return NewBusinessError("CUSTOMER_NOT_FOUND", "Customer not found", err)
	case errors.Is(err, ErrLastAdmin):
		return NewBusinessError("LAST_ADMIN", "At least one admin account must remain", err)
	case errors.Is(err, ErrCannotModifySelf):
		return NewBusinessError("CANNOT_MODIFY_SELF", "You cannot perform this action on your own account", err)
	}
	return NewBusinessError("UPDATE_CUSTOMER_FAILED", "Operation failed", err)
}
