//go:build gpu

package device

/*
#cgo LDFLAGS: -lOpenCL
#define CL_TARGET_OPENCL_VERSION 120
#define CL_USE_DEPRECATED_OPENCL_1_2_APIS
#include <CL/cl.h>
#include <stdlib.h>

static const char* prost_cl_error_string(cl_int status) {
	switch (status) {
	case CL_SUCCESS: return "CL_SUCCESS";
	case CL_DEVICE_NOT_FOUND: return "CL_DEVICE_NOT_FOUND";
	case CL_DEVICE_NOT_AVAILABLE: return "CL_DEVICE_NOT_AVAILABLE";
	case CL_COMPILER_NOT_AVAILABLE: return "CL_COMPILER_NOT_AVAILABLE";
	case CL_MEM_OBJECT_ALLOCATION_FAILURE: return "CL_MEM_OBJECT_ALLOCATION_FAILURE";
	case CL_OUT_OF_RESOURCES: return "CL_OUT_OF_RESOURCES";
	case CL_OUT_OF_HOST_MEMORY: return "CL_OUT_OF_HOST_MEMORY";
	case CL_BUILD_PROGRAM_FAILURE: return "CL_BUILD_PROGRAM_FAILURE";
	case CL_INVALID_VALUE: return "CL_INVALID_VALUE";
	case CL_INVALID_DEVICE_TYPE: return "CL_INVALID_DEVICE_TYPE";
	case CL_INVALID_PLATFORM: return "CL_INVALID_PLATFORM";
	case CL_INVALID_DEVICE: return "CL_INVALID_DEVICE";
	case CL_INVALID_CONTEXT: return "CL_INVALID_CONTEXT";
	case CL_INVALID_COMMAND_QUEUE: return "CL_INVALID_COMMAND_QUEUE";
	case CL_INVALID_MEM_OBJECT: return "CL_INVALID_MEM_OBJECT";
	case CL_INVALID_PROGRAM: return "CL_INVALID_PROGRAM";
	case CL_INVALID_PROGRAM_EXECUTABLE: return "CL_INVALID_PROGRAM_EXECUTABLE";
	case CL_INVALID_KERNEL_NAME: return "CL_INVALID_KERNEL_NAME";
	case CL_INVALID_KERNEL: return "CL_INVALID_KERNEL";
	case CL_INVALID_ARG_INDEX: return "CL_INVALID_ARG_INDEX";
	case CL_INVALID_ARG_VALUE: return "CL_INVALID_ARG_VALUE";
	case CL_INVALID_KERNEL_ARGS: return "CL_INVALID_KERNEL_ARGS";
	case CL_INVALID_WORK_GROUP_SIZE: return "CL_INVALID_WORK_GROUP_SIZE";
	default: return "CL_UNKNOWN_ERROR";
	}
}

static cl_command_queue prost_create_queue(cl_context ctx, cl_device_id device, cl_int *status) {
#if CL_TARGET_OPENCL_VERSION >= 200
	const cl_queue_properties props[] = {0};
	return clCreateCommandQueueWithProperties(ctx, device, props, status);
#else
	return clCreateCommandQueue(ctx, device, 0, status);
#endif
}

// Kernel source for the double-precision elementwise ops the Vector
// backend needs: axpy (y += a*x) and scale (x *= a). The element type is
// the SCALAR_T macro; InitGPU compiles the source once with SCALAR_T
// defined as double, and no float variant is built.
static const char *prost_kernels_src =
	"__kernel void prost_axpy(__global SCALAR_T *y, __global const SCALAR_T *x, SCALAR_T a) {\n"
	"  int i = get_global_id(0);\n"
	"  y[i] += a * x[i];\n"
	"}\n"
	"__kernel void prost_scale(__global SCALAR_T *x, SCALAR_T a) {\n"
	"  int i = get_global_id(0);\n"
	"  x[i] *= a;\n"
	"}\n";
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

// Runtime owns the OpenCL context, command queue and compiled kernel
// set used by the "gpu" build of the Vector backend. Mirrors the
// lifecycle of the teacher's fit/gpu.Runtime almost exactly: select a
// device (GPU preferred), create a context and an in-order queue.
type Runtime struct {
	platformID C.cl_platform_id
	deviceID   C.cl_device_id
	context    C.cl_context
	queue      C.cl_command_queue
	program64  C.cl_program
	axpy64     C.cl_kernel
	scale64    C.cl_kernel
	Platform   PlatformInfo
	Device     DeviceInfo
}

// ErrNoDevices indicates that no usable OpenCL devices were found.
var ErrNoDevices = errors.New("device: no OpenCL devices found")

// InitGPU selects a device (GPU preferred, then CPU, then whatever is
// first) and creates a context, queue and the elementwise kernel
// program. The solver lifecycle does not call it (solver.Init only
// enumerates platforms); it is not safe for concurrent use.
func InitGPU() (*Runtime, error) {
	records, err := enumeratePlatformRecords()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoDevices
	}

	chosen := selectDevice(records)
	if chosen == nil {
		return nil, ErrNoDevices
	}

	var status C.cl_int
	context := C.clCreateContext(nil, 1, &chosen.device.id, nil, nil, &status)
	if status != C.CL_SUCCESS {
		return nil, statusError("clCreateContext", status)
	}

	queue := C.prost_create_queue(context, chosen.device.id, &status)
	if status != C.CL_SUCCESS {
		C.clReleaseContext(context)
		return nil, statusError("clCreateCommandQueue", status)
	}

	rt := &Runtime{
		platformID: chosen.platform.id,
		deviceID:   chosen.device.id,
		context:    context,
		queue:      queue,
		Platform:   chosen.platform.info,
		Device:     chosen.device.info,
	}

	if err := rt.buildKernels(); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (r *Runtime) buildKernels() error {
	src := C.CString("#define SCALAR_T double\n" + C.GoString(C.prost_kernels_src))
	defer C.free(unsafe.Pointer(src))

	var status C.cl_int
	program := C.clCreateProgramWithSource(r.context, 1, &src, nil, &status)
	if status != C.CL_SUCCESS {
		return statusError("clCreateProgramWithSource", status)
	}

	status = C.clBuildProgram(program, 1, &r.deviceID, nil, nil, nil)
	if status != C.CL_SUCCESS {
		C.clReleaseProgram(program)
		return statusError("clBuildProgram", status)
	}

	axpyName := C.CString("prost_axpy")
	defer C.free(unsafe.Pointer(axpyName))
	scaleName := C.CString("prost_scale")
	defer C.free(unsafe.Pointer(scaleName))

	axpyKernel := C.clCreateKernel(program, axpyName, &status)
	if status != C.CL_SUCCESS {
		C.clReleaseProgram(program)
		return statusError("clCreateKernel(axpy)", status)
	}
	scaleKernel := C.clCreateKernel(program, scaleName, &status)
	if status != C.CL_SUCCESS {
		C.clReleaseKernel(axpyKernel)
		C.clReleaseProgram(program)
		return statusError("clCreateKernel(scale)", status)
	}

	r.program64 = program
	r.axpy64 = axpyKernel
	r.scale64 = scaleKernel
	return nil
}

// Close releases OpenCL resources. Idempotent and nil-receiver-safe,
// mirroring fit/gpu.Runtime.Close.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	if r.axpy64 != nil {
		C.clReleaseKernel(r.axpy64)
		r.axpy64 = nil
	}
	if r.scale64 != nil {
		C.clReleaseKernel(r.scale64)
		r.scale64 = nil
	}
	if r.program64 != nil {
		C.clReleaseProgram(r.program64)
		r.program64 = nil
	}
	if r.queue != nil {
		C.clReleaseCommandQueue(r.queue)
		r.queue = nil
	}
	if r.context != nil {
		C.clReleaseContext(r.context)
		r.context = nil
	}
}

// Sync blocks until every command enqueued on this runtime's queue has
// completed (clFinish). Stream.Sync does not call it: streams run their
// kernels on host memory in every build.
func (r *Runtime) Sync() error {
	status := C.clFinish(r.queue)
	if status != C.CL_SUCCESS {
		return statusError("clFinish", status)
	}
	return nil
}

// EnumeratePlatforms returns discovered platforms with their devices,
// backing the list_gpus dispatcher command.
func EnumeratePlatforms() ([]PlatformInfo, error) {
	records, err := enumeratePlatformRecords()
	if err != nil {
		return nil, err
	}
	out := make([]PlatformInfo, len(records))
	for i, platform := range records {
		devices := make([]DeviceInfo, len(platform.devices))
		for j, d := range platform.devices {
			devices[j] = d.info
		}
		info := platform.info
		info.Devices = devices
		out[i] = info
	}
	return out, nil
}

type platformRecord struct {
	id      C.cl_platform_id
	info    PlatformInfo
	devices []deviceRecord
}

type deviceRecord struct {
	id   C.cl_device_id
	info DeviceInfo
}

type selection struct {
	platform platformRecord
	device   deviceRecord
}

func selectDevice(records []platformRecord) *selection {
	for _, want := range []DeviceType{DeviceTypeGPU, DeviceTypeCPU} {
		for _, platform := range records {
			for _, d := range platform.devices {
				if d.info.Type == want {
					return &selection{platform: platform, device: d}
				}
			}
		}
	}
	for _, platform := range records {
		if len(platform.devices) > 0 {
			return &selection{platform: platform, device: platform.devices[0]}
		}
	}
	return nil
}

func enumeratePlatformRecords() ([]platformRecord, error) {
	var count C.cl_uint
	status := C.clGetPlatformIDs(0, nil, &count)
	if status != C.CL_SUCCESS {
		return nil, statusError("clGetPlatformIDs(count)", status)
	}
	if count == 0 {
		return nil, nil
	}

	platformIDs := make([]C.cl_platform_id, int(count))
	status = C.clGetPlatformIDs(count, &platformIDs[0], nil)
	if status != C.CL_SUCCESS {
		return nil, statusError("clGetPlatformIDs(list)", status)
	}

	records := make([]platformRecord, 0, int(count))
	for pi, pid := range platformIDs {
		name, _ := getPlatformString(pid, C.CL_PLATFORM_NAME)
		vendor, _ := getPlatformString(pid, C.CL_PLATFORM_VENDOR)
		version, _ := getPlatformString(pid, C.CL_PLATFORM_VERSION)

		rec := platformRecord{id: pid, info: PlatformInfo{Name: name, Vendor: vendor, Version: version}}

		devices, err := enumerateDevices(pid, pi)
		if err != nil && !errors.Is(err, ErrNoDevices) {
			return nil, err
		}
		rec.devices = devices
		for _, d := range devices {
			rec.info.Devices = append(rec.info.Devices, d.info)
		}
		records = append(records, rec)
	}
	return records, nil
}

func enumerateDevices(platform C.cl_platform_id, platformIdx int) ([]deviceRecord, error) {
	var count C.cl_uint
	status := C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_ALL, 0, nil, &count)
	if status == C.CL_DEVICE_NOT_FOUND || count == 0 {
		return nil, ErrNoDevices
	}
	if status != C.CL_SUCCESS {
		return nil, statusError("clGetDeviceIDs(count)", status)
	}

	deviceIDs := make([]C.cl_device_id, int(count))
	status = C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_ALL, count, &deviceIDs[0], nil)
	if status != C.CL_SUCCESS {
		return nil, statusError("clGetDeviceIDs(list)", status)
	}

	devices := make([]deviceRecord, 0, int(count))
	for i, id := range deviceIDs {
		info, err := buildDeviceInfo(id)
		if err != nil {
			return nil, err
		}
		info.ID = platformIdx*1000 + i
		devices = append(devices, deviceRecord{id: id, info: info})
	}
	return devices, nil
}

func buildDeviceInfo(id C.cl_device_id) (DeviceInfo, error) {
	name, err := getDeviceString(id, C.CL_DEVICE_NAME)
	if err != nil {
		return DeviceInfo{}, err
	}
	vendor, err := getDeviceString(id, C.CL_DEVICE_VENDOR)
	if err != nil {
		return DeviceInfo{}, err
	}
	version, err := getDeviceString(id, C.CL_DEVICE_VERSION)
	if err != nil {
		return DeviceInfo{}, err
	}

	var rawType C.cl_device_type
	status := C.clGetDeviceInfo(id, C.CL_DEVICE_TYPE, C.size_t(unsafe.Sizeof(rawType)), unsafe.Pointer(&rawType), nil)
	if status != C.CL_SUCCESS {
		return DeviceInfo{}, statusError("clGetDeviceInfo(type)", status)
	}

	var computeUnits C.cl_uint
	status = C.clGetDeviceInfo(id, C.CL_DEVICE_MAX_COMPUTE_UNITS, C.size_t(unsafe.Sizeof(computeUnits)), unsafe.Pointer(&computeUnits), nil)
	if status != C.CL_SUCCESS {
		return DeviceInfo{}, statusError("clGetDeviceInfo(computeUnits)", status)
	}

	var memBytes C.cl_ulong
	status = C.clGetDeviceInfo(id, C.CL_DEVICE_GLOBAL_MEM_SIZE, C.size_t(unsafe.Sizeof(memBytes)), unsafe.Pointer(&memBytes), nil)
	if status != C.CL_SUCCESS {
		return DeviceInfo{}, statusError("clGetDeviceInfo(memSize)", status)
	}

	return DeviceInfo{
		Name:            name,
		Vendor:          vendor,
		Version:         version,
		Type:            mapDeviceType(rawType),
		MaxComputeUnits: uint32(computeUnits),
		MemoryBytes:     uint64(memBytes),
	}, nil
}

func getPlatformString(id C.cl_platform_id, param C.cl_platform_info) (string, error) {
	var size C.size_t
	status := C.clGetPlatformInfo(id, param, 0, nil, &size)
	if status != C.CL_SUCCESS {
		return "", statusError("clGetPlatformInfo(size)", status)
	}
	if size == 0 {
		return "", nil
	}
	buf := make([]byte, int(size))
	status = C.clGetPlatformInfo(id, param, size, unsafe.Pointer(&buf[0]), nil)
	if status != C.CL_SUCCESS {
		return "", statusError("clGetPlatformInfo(value)", status)
	}
	return trimNull(buf), nil
}

func getDeviceString(id C.cl_device_id, param C.cl_device_info) (string, error) {
	var size C.size_t
	status := C.clGetDeviceInfo(id, param, 0, nil, &size)
	if status != C.CL_SUCCESS {
		return "", statusError("clGetDeviceInfo(size)", status)
	}
	if size == 0 {
		return "", nil
	}
	buf := make([]byte, int(size))
	status = C.clGetDeviceInfo(id, param, size, unsafe.Pointer(&buf[0]), nil)
	if status != C.CL_SUCCESS {
		return "", statusError("clGetDeviceInfo(value)", status)
	}
	return trimNull(buf), nil
}

func trimNull(buf []byte) string {
	if len(buf) == 0 {
		return ""
	}
	if buf[len(buf)-1] == 0 {
		buf = buf[:len(buf)-1]
	}
	return string(buf)
}

func mapDeviceType(dt C.cl_device_type) DeviceType {
	switch {
	case dt&C.CL_DEVICE_TYPE_GPU != 0:
		return DeviceTypeGPU
	case dt&C.CL_DEVICE_TYPE_CPU != 0:
		return DeviceTypeCPU
	case dt&C.CL_DEVICE_TYPE_ACCELERATOR != 0:
		return DeviceTypeAccelerator
	case dt&C.CL_DEVICE_TYPE_DEFAULT != 0:
		return DeviceTypeDefault
	default:
		return DeviceTypeUnknown
	}
}

func statusError(prefix string, status C.cl_int) error {
	return fmt.Errorf("%s: %s (%d)", prefix, C.GoString(C.prost_cl_error_string(status)), int(status))
}
