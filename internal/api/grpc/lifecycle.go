package grpc

import (
	"context"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/logger"
	"fleetrent-backend/internal/service"

	"google.golang.org/grpc"
)

const ServiceName = "fleet.v1.LifecycleService"

// LifecycleServiceServer is the server API for fleet.v1.LifecycleService.
type LifecycleServiceServer interface {
	Transition(context.Context, *TransitionRequest) (*TransitionResponse, error)
	BindContract(context.Context, *BindContractRequest) (*ContractResponse, error)
	RenewContract(context.Context, *RenewContractRequest) (*RenewContractResponse, error)
	TerminateContract(context.Context, *TerminateContractRequest) (*ContractResponse, error)
	GetHistory(context.Context, *GetHistoryRequest) (*GetHistoryResponse, error)
	GetMaintenanceStatus(context.Context, *EquipmentRequest) (*domain.MaintenanceStatus, error)
	GetEquipment(context.Context, *EquipmentRequest) (*domain.Equipment, error)
	RegisterEquipment(context.Context, *RegisterEquipmentRequest) (*domain.Equipment, error)
	HealthCheck(context.Context, *HealthCheckRequest) (*HealthCheckResponse, error)
}

type LifecycleHandler struct {
	equipment   service.EquipmentService
	lifecycle   service.LifecycleService
	contracts   service.ContractService
	ledger      service.LedgerService
	maintenance service.MaintenanceService
}

func NewLifecycleHandler(
	equipment service.EquipmentService,
	lifecycle service.LifecycleService,
	contracts service.ContractService,
	ledger service.LedgerService,
	maintenance service.MaintenanceService,
) *LifecycleHandler {
	return &LifecycleHandler{
		equipment:   equipment,
		lifecycle:   lifecycle,
		contracts:   contracts,
		ledger:      ledger,
		maintenance: maintenance,
	}
}

func (h *LifecycleHandler) Transition(ctx context.Context, req *TransitionRequest) (*TransitionResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	action, err := domain.ParseAction(req.Action)
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := h.lifecycle.Transition(ctx, service.TransitionCommand{
		EquipmentID: req.EquipmentID,
		Action:      action,
		RequestID:   req.RequestID,
		Actor:       actor,
		Destination: req.Destination,
		Reason:      req.Reason,
		Notes:       req.Notes,
		Maintenance: req.Maintenance,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return mapTransitionResult(res), nil
}

func (h *LifecycleHandler) BindContract(ctx context.Context, req *BindContractRequest) (*ContractResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	c, res, err := h.contracts.BindContract(ctx, req.EquipmentID, req.Terms, actor, req.RequestID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ContractResponse{Contract: c, Transition: mapTransitionResult(res)}, nil
}

func (h *LifecycleHandler) RenewContract(ctx context.Context, req *RenewContractRequest) (*RenewContractResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	r, err := h.contracts.RenewContract(ctx, req.ContractID, req.Terms, actor, req.RequestID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &RenewContractResponse{Renewal: r}, nil
}

func (h *LifecycleHandler) TerminateContract(ctx context.Context, req *TerminateContractRequest) (*ContractResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	c, res, err := h.contracts.TerminateContract(ctx, req.ContractID, req.Reason, req.Cancel, actor, req.RequestID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ContractResponse{Contract: c, Transition: mapTransitionResult(res)}, nil
}

func (h *LifecycleHandler) GetHistory(ctx context.Context, req *GetHistoryRequest) (*GetHistoryResponse, error) {
	after, err := domain.ParseLedgerCursor(req.Cursor)
	if err != nil {
		return nil, toStatus(err)
	}
	page, next, err := h.ledger.ListHistory(ctx, req.EquipmentID, after, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &GetHistoryResponse{Movements: page}
	if next != nil {
		resp.NextCursor = next.String()
	}
	return resp, nil
}

func (h *LifecycleHandler) GetMaintenanceStatus(ctx context.Context, req *EquipmentRequest) (*domain.MaintenanceStatus, error) {
	st, err := h.maintenance.GetMaintenanceStatus(ctx, req.EquipmentID)
	return st, toStatus(err)
}

func (h *LifecycleHandler) GetEquipment(ctx context.Context, req *EquipmentRequest) (*domain.Equipment, error) {
	e, err := h.equipment.GetEquipment(ctx, req.EquipmentID)
	return e, toStatus(err)
}

func (h *LifecycleHandler) RegisterEquipment(ctx context.Context, req *RegisterEquipmentRequest) (*domain.Equipment, error) {
	e := req.toDomain()
	if err := h.equipment.RegisterEquipment(ctx, e); err != nil {
		return nil, toStatus(err)
	}
	logger.InfoContext(ctx, "Equipment registered", "equipmentID", e.ID, "assetNumber", e.AssetNumber)
	return e, nil
}

func (h *LifecycleHandler) HealthCheck(ctx context.Context, req *HealthCheckRequest) (*HealthCheckResponse, error) {
	return &HealthCheckResponse{Status: "SERVING"}, nil
}

func RegisterLifecycleServiceServer(s grpc.ServiceRegistrar, srv LifecycleServiceServer) {
	s.RegisterService(&LifecycleService_ServiceDesc, srv)
}

// unaryHandler adapts a typed method to the grpc.MethodDesc handler shape.
func unaryHandler[Req any, Resp any](name string, call func(LifecycleServiceServer, context.Context, *Req) (Resp, error)) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LifecycleServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(LifecycleServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var LifecycleService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LifecycleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Transition", Handler: unaryHandler("Transition", LifecycleServiceServer.Transition)},
		{MethodName: "BindContract", Handler: unaryHandler("BindContract", LifecycleServiceServer.BindContract)},
		{MethodName: "RenewContract", Handler: unaryHandler("RenewContract", LifecycleServiceServer.RenewContract)},
		{MethodName: "TerminateContract", Handler: unaryHandler("TerminateContract", LifecycleServiceServer.TerminateContract)},
		{MethodName: "GetHistory", Handler: unaryHandler("GetHistory", LifecycleServiceServer.GetHistory)},
		{MethodName: "GetMaintenanceStatus", Handler: unaryHandler("GetMaintenanceStatus", LifecycleServiceServer.GetMaintenanceStatus)},
		{MethodName: "GetEquipment", Handler: unaryHandler("GetEquipment", LifecycleServiceServer.GetEquipment)},
		{MethodName: "RegisterEquipment", Handler: unaryHandler("RegisterEquipment", LifecycleServiceServer.RegisterEquipment)},
		{MethodName: "HealthCheck", Handler: unaryHandler("HealthCheck", LifecycleServiceServer.HealthCheck)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fleet/v1/lifecycle.proto",
}
